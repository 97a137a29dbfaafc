package config

import (
	"testing"

	"github.com/apolloconfig/agollo/v4/storage"
)

// changeListener must satisfy the listener contract AddChangeListener expects.
var _ storage.ChangeListener = (*changeListener)(nil)

func TestChangeListenerNewestChangeIsNoop(t *testing.T) {
	cfg := &Config{}
	l := &changeListener{ns: "application", store: NewStore(cfg)}
	l.OnNewestChange(&storage.FullChangeEvent{})
	if l.store.Get() != cfg {
		t.Fatal("newest-change callback must not replace the config")
	}
}
