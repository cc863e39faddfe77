package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"home.html", "login.html", "register.html", "session.html", "session_new.html", "session_edit.html", "results.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}
