package gateway

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
)

// Block page copy, kept as Markdown so product wording stays editable without
// touching markup. Each of the three block situations stays distinguishable.
const (
	unavailableMarkdown = `# Kiosk unavailable

The kiosk has been switched off by an operator.

Please contact staff if you believe this is an error.`

	startingMarkdown = `# Kiosk starting

The kiosk service is starting up.

This page refreshes automatically as soon as the kiosk is ready.`

	scheduledOffMarkdown = `# Kiosk closed

The kiosk is currently outside its operating hours.

It becomes available again automatically at the next scheduled opening.`
)

var pageShell = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; background: #111; color: #eee; text-align: center; }
main { max-width: 32rem; padding: 2rem; }
h1 { font-size: 2rem; }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
<script src="/kiosk/monitor.js"></script>
</body>
</html>
`))

// renderPage converts the Markdown copy to HTML and wraps it in the shell.
// The shell embeds the monitor script so blocked clients recover on their own.
func renderPage(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render block page %q: %w", title, err)
	}

	var out bytes.Buffer
	err := pageShell.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("execute page shell %q: %w", title, err)
	}
	return out.Bytes(), nil
}

// blockPages holds the pre-rendered local responses, one per block decision.
type blockPages struct {
	unavailable  []byte
	starting     []byte
	scheduledOff []byte
}

func renderBlockPages() (*blockPages, error) {
	unavailable, err := renderPage("Kiosk unavailable", unavailableMarkdown)
	if err != nil {
		return nil, err
	}
	starting, err := renderPage("Kiosk starting", startingMarkdown)
	if err != nil {
		return nil, err
	}
	scheduledOff, err := renderPage("Kiosk closed", scheduledOffMarkdown)
	if err != nil {
		return nil, err
	}
	return &blockPages{unavailable: unavailable, starting: starting, scheduledOff: scheduledOff}, nil
}

func (bp *blockPages) forDecision(d Decision) []byte {
	switch d {
	case DecideUnavailable:
		return bp.unavailable
	case DecideStarting:
		return bp.starting
	default:
		return bp.scheduledOff
	}
}
