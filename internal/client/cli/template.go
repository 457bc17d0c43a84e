package cli

import (
	"strings"
	"text/template"
	"time"
)

const statusTemplate = `=== Authentication Status ===

{{- if not .Authenticated }}
Status: Not authenticated

Run 'pongdash login' to authenticate.
{{- else }}
Status:        Authenticated
User:          {{ .User.NameOrDefault }}
Email:         {{ .User.Email }}
{{- with .Token }}
{{- if .Opaque }}
Token:         opaque (expiry unknown)
{{- else if .ExpiresAt.IsZero }}
Token:         no expiry
{{- else }}
Token expires: {{ .ExpiresAt.Format "2006-01-02T15:04:05Z07:00" }}
{{- if .Expired $.Now }}
⚠️  Access token has expired; it will be refreshed on the next request.
{{- else }}
Time remaining: {{ remaining .ExpiresAt $.Now }}
{{- end }}
{{- end }}
{{- end }}
Storage:       {{ if .Sealed }}sealed with passphrase{{ else }}plain{{ end }}
{{- end }}
`

const profileTemplate = `=== Profile ===

Display name: {{ .NameOrDefault }}
Email:        {{ .Email }}
Avatar:       {{ .AvatarOrDefault }}
Rank:         {{ with .Stats.Rank }}{{ . }}{{ else }}unranked{{ end }}
Record:       {{ .Stats.Wins }}W / {{ .Stats.Losses }}L
`

const matchesTemplate = `=== Recent Matches ===
{{- if eq (len .) 0 }}
No matches played yet.
{{- else }}
Found {{ len . }} match(es):
{{ range . }}
- {{ .PlayedAt.Format "2006-01-02 15:04" }}  {{ upper .Result }}  {{ .ScoreFor }}:{{ .ScoreAgainst }}  vs {{ .Opponent }}
{{- end }}
{{- end }}
`

const friendsTemplate = `=== Friends ===
{{- if eq (len .) 0 }}
No friends yet. Use 'friends add <user-id>' to send a request.
{{- else }}
{{ range . }}
- {{ .DisplayName }} ({{ .ID }})  {{ .Status }}{{ if .IsOnline }}  ● online{{ end }}
{{- end }}
{{- end }}
`

const versionTemplate = `pongdash client
Version:    {{ .Version }}
Build Date: {{ .BuildDate }}
Git Commit: {{ .GitCommit }}
`

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"remaining": func(at, now time.Time) string {
		return at.Sub(now).Round(time.Second).String()
	},
}

// render выполняет шаблон вывода в IO
func (c *Cli) render(text string, data any) error {
	tmpl, err := template.New("output").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return err
	}
	return tmpl.Execute(c.io, data)
}
