package datasource

import (
	"fmt"
	"sort"
	"sync"

	"stock-screener/src/data_source/finnhub"
	"stock-screener/src/data_source/yahoo"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"
)

// tierRank orders live providers inside the retrieval chain.
var tierRank = map[models.MSourceTag]int{
	models.SourcePrimary:   0,
	models.SourceSecondary: 1,
}

// MultiSourceManager holds the live provider tiers of the retrieval chain.
type MultiSourceManager struct {
	Sources map[string]interfaces.IPriceProvider
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IPriceProvider, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IPriceProvider),
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// BuildSources creates one provider per configured source entry.
func BuildSources(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) ([]interfaces.IPriceProvider, error) {
	var out []interfaces.IPriceProvider
	for _, sc := range cfg.DataSource.Sources {
		switch sc.Kind {
		case "yahoo":
			out = append(out, yahoo.NewYahooFinanceSource(cfg, sc, netMgr, log.Named(sc.Name)))
		case "finnhub":
			out = append(out, finnhub.NewFinnhubSource(cfg, sc, log.Named(sc.Name)))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", sc.Name, sc.Kind)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// AddSource registers a provider. Names must be unique.
func (m *MultiSourceManager) AddSource(source interfaces.IPriceProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s (%s)", name, source.Source())
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}

	delete(m.Sources, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IPriceProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns the providers in chain order: primary tier first,
// then secondary, ties broken by name.
func (m *MultiSourceManager) GetAllSources() []interfaces.IPriceProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IPriceProvider, 0, len(m.Sources))
	for _, s := range m.Sources {
		list = append(list, s)
	}
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := rank(list[i].Source()), rank(list[j].Source())
		if ri != rj {
			return ri < rj
		}
		return list[i].Name() < list[j].Name()
	})
	return list
}

// -----------------------------------------------------------------------------

func rank(tag models.MSourceTag) int {
	if r, ok := tierRank[tag]; ok {
		return r
	}
	return len(tierRank)
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}
