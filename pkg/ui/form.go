package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/store"
)

// InitAnswers are the choices collected by the init form.
type InitAnswers struct {
	Backend  string
	DSN      string
	Name     string
	Breaker  bool
	Autosave bool
	Relation string
}

// AnswersFrom seeds the form from an existing configuration.
func AnswersFrom(cfg config.Config) InitAnswers {
	return InitAnswers{
		Backend:  cfg.Store.Backend,
		DSN:      cfg.Store.DSN,
		Name:     cfg.Store.Name,
		Breaker:  cfg.Store.Breaker,
		Autosave: cfg.Autosave.Enabled,
		Relation: cfg.Interaction.DefaultRelation,
	}
}

// NewInitForm builds the interactive setup form writing into ans.
func NewInitForm(ans *InitAnswers, kinds *model.Kinds) *huh.Form {
	var relations []huh.Option[string]
	for _, rel := range kinds.RelationKinds() {
		relations = append(relations, huh.NewOption(formatItemName(string(rel)), string(rel)))
	}
	if len(relations) == 0 {
		relations = huh.NewOptions(string(model.RelRelatesTo))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should maps be stored?").
				Options(
					huh.NewOption("JSON file", store.BackendFile),
					huh.NewOption("SQLite database", store.BackendSQLite),
					huh.NewOption("Badger directory", store.BackendBadger),
					huh.NewOption("Redis", store.BackendRedis),
				).
				Value(&ans.Backend),
			huh.NewInput().
				Title("Location").
				Description("File path, database path, directory, or redis:// URL").
				Placeholder("map.tmap.json").
				Value(&ans.DSN).
				Validate(func(s string) error { return ValidateDSN(ans.Backend, s) }),
			huh.NewInput().
				Title("Map name").
				Description("Used by backends that hold several maps").
				Placeholder("default").
				Value(&ans.Name),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save automatically after edits?").
				Value(&ans.Autosave),
			huh.NewConfirm().
				Title("Guard the store with a circuit breaker?").
				Value(&ans.Breaker),
			huh.NewSelect[string]().
				Title("Relation for new connections").
				Options(relations...).
				Value(&ans.Relation),
		),
	)
}

// ValidateDSN checks a location against its backend.
func ValidateDSN(backend, dsn string) error {
	dsn = strings.TrimSpace(dsn)
	switch backend {
	case store.BackendFile, "":
		return nil
	case store.BackendRedis:
		if !strings.HasPrefix(dsn, "redis://") && !strings.HasPrefix(dsn, "rediss://") {
			return errors.New("redis location must be a redis:// URL")
		}
	default:
		if dsn == "" {
			return errors.New("location is required")
		}
	}
	return nil
}

// Apply copies the answers onto cfg.
func (a InitAnswers) Apply(cfg config.Config) config.Config {
	if a.Backend != "" {
		cfg.Store.Backend = a.Backend
	}
	cfg.Store.DSN = strings.TrimSpace(a.DSN)
	cfg.Store.Name = strings.TrimSpace(a.Name)
	cfg.Store.Breaker = a.Breaker
	cfg.Autosave.Enabled = a.Autosave
	if a.Relation != "" {
		cfg.Interaction.DefaultRelation = a.Relation
	}
	return cfg
}
