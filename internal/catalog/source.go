package catalog

import (
	"sync"

	"github.com/Skufu/SymptomDesk/internal/platform/logger"
)

// Source loads a catalog file on first use and serves the same catalog for
// the rest of the process. A missing or malformed file yields an empty
// catalog instead of an error.
type Source struct {
	path string
	log  *logger.Logger

	once sync.Once
	cat  *Catalog
}

func NewSource(path string, log *logger.Logger) *Source {
	if log == nil {
		log = logger.Nop()
	}
	return &Source{path: path, log: log.With("component", "catalog")}
}

func (s *Source) Catalog() *Catalog {
	s.once.Do(func() {
		items, err := Load(s.path)
		if err != nil {
			s.log.Warn("catalog unavailable, recommendations disabled", "path", s.path, "error", err)
			s.cat = Empty()
			return
		}
		s.cat = New(items)
		s.log.Info("catalog loaded", "path", s.path, "items", s.cat.Len())
	})
	return s.cat
}
