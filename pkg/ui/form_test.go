package ui

import (
	"testing"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/store"
)

func TestValidateDSN(t *testing.T) {
	tests := []struct {
		backend, dsn string
		wantErr      bool
	}{
		{store.BackendFile, "", false},
		{"", "anything", false},
		{store.BackendRedis, "redis://localhost:6379/0", false},
		{store.BackendRedis, "rediss://cache:6380", false},
		{store.BackendRedis, "localhost:6379", true},
		{store.BackendSQLite, "maps.db", false},
		{store.BackendSQLite, "   ", true},
		{store.BackendBadger, "", true},
	}
	for _, tt := range tests {
		err := ValidateDSN(tt.backend, tt.dsn)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDSN(%q, %q) = %v, wantErr %v", tt.backend, tt.dsn, err, tt.wantErr)
		}
	}
}

func TestInitAnswers_RoundTrip(t *testing.T) {
	cfg := config.Default()
	ans := AnswersFrom(cfg)
	if ans.Backend != cfg.Store.Backend {
		t.Errorf("Backend = %q", ans.Backend)
	}

	ans.Backend = store.BackendSQLite
	ans.DSN = "  maps.db "
	ans.Name = "energy"
	ans.Breaker = true
	ans.Autosave = false
	ans.Relation = string(model.RelOpposes)

	got := ans.Apply(cfg)
	if got.Store.Backend != store.BackendSQLite || got.Store.DSN != "maps.db" || got.Store.Name != "energy" {
		t.Errorf("store = %+v", got.Store)
	}
	if !got.Store.Breaker || got.Autosave.Enabled {
		t.Errorf("breaker=%v autosave=%v", got.Store.Breaker, got.Autosave.Enabled)
	}
	if got.Interaction.DefaultRelation != string(model.RelOpposes) {
		t.Errorf("relation = %q", got.Interaction.DefaultRelation)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}
}

func TestInitAnswers_ApplyKeepsUnsetChoices(t *testing.T) {
	cfg := config.Default()
	got := InitAnswers{}.Apply(cfg)
	if got.Store.Backend != cfg.Store.Backend {
		t.Errorf("Backend = %q", got.Store.Backend)
	}
	if got.Interaction.DefaultRelation != cfg.Interaction.DefaultRelation {
		t.Errorf("relation = %q", got.Interaction.DefaultRelation)
	}
}

func TestNewInitForm(t *testing.T) {
	ans := AnswersFrom(config.Default())
	if f := NewInitForm(&ans, model.DefaultKinds()); f == nil {
		t.Fatal("nil form")
	}
	if f := NewInitForm(&ans, &model.Kinds{}); f == nil {
		t.Fatal("nil form for empty registry")
	}
}
