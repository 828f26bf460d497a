package source

import (
	"go.uber.org/zap"

	"github.com/hdtickets/ticketsearch/pkg/stubhub"
	"github.com/hdtickets/ticketsearch/pkg/ticketmaster"
	"github.com/hdtickets/ticketsearch/pkg/viagogo"
)

// BuildRegistry constructs the registry from config, wiring up a
// client per enabled entry. Entries that are disabled, unknown, or
// missing required credentials are skipped with a log line rather
// than failing the whole run.
func BuildRegistry(cfg *Config) *Registry {
	log := zap.L().With(zap.String("component", "source"))
	reg := NewRegistry()

	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			log.Debug("source disabled", zap.String("source", sc.Name))
			continue
		}
		switch sc.Name {
		case "stubhub":
			reg.Register(NewStubHub(stubhub.NewClient(), sc))
		case "ticketmaster":
			if sc.APIKey == "" {
				log.Warn("skipping source, api key not configured", zap.String("source", sc.Name))
				continue
			}
			reg.Register(NewTicketmaster(ticketmaster.NewClient(sc.APIKey), sc))
		case "viagogo":
			reg.Register(NewViagogo(viagogo.NewClient(sc.Token), sc))
		default:
			log.Warn("skipping unknown source in config", zap.String("source", sc.Name))
		}
	}
	return reg
}
