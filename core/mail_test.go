package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/academia/sims/fs"
)

func TestParseTemplates(t *testing.T) {
	cache, err := parseTemplates(appfs.FS)
	require.NoError(t, err)

	for _, name := range []string{"welcome", "password_reset"} {
		require.Contains(t, cache, name)
		assert.Contains(t, cache[name], ".txt", name)
		assert.Contains(t, cache[name], ".gohtml", name)
	}
	// partials are not templates on their own
	assert.NotContains(t, cache, "_base")
}

func TestEmailMessage_Render(t *testing.T) {
	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  bool
		wantText []string
		wantHTML []string
	}{
		{
			name: "welcome",
			msg: EmailMessage{
				TemplateName: "welcome",
				TemplateData: map[string]interface{}{"Name": "Ada", "Username": "ada", "School": "SIMS"},
			},
			wantText: []string{"Hello Ada,", "Username: ada", "https://sims.test/login", "do not reply"},
			wantHTML: []string{"<title>Welcome</title>", "<strong>ada</strong>", `href="https://sims.test/login"`},
		},
		{
			name: "password reset",
			msg: EmailMessage{
				TemplateName: "password_reset",
				TemplateData: map[string]interface{}{"Name": "Ada", "UID": "MQ", "Token": "abc-123"},
			},
			wantText: []string{"https://sims.test/password-reset/MQ/abc-123"},
			wantHTML: []string{"<title>Password reset</title>", "/password-reset/MQ/abc-123"},
		},
		{
			name:     "plain body",
			msg:      EmailMessage{BodyStr: "hi"},
			wantText: []string{"hi"},
		},
		{
			name:    "missing data",
			msg:     EmailMessage{TemplateName: "welcome", TemplateData: map[string]interface{}{}},
			wantErr: true,
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{TemplateName: "lol"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			msg.To = []mail.Address{{Name: "Ada", Address: "ada@sims.test"}}
			err := msg.Render("https://sims.test")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, msg.HasContent())
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, s)
			}
		})
	}
}
