// Package report renders a self-contained HTML page for a cached composition.
package report

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dygy/sonigraph/internal/cache"
	"github.com/dygy/sonigraph/internal/composition"
)

// ReportData holds all data needed to generate a report
type ReportData struct {
	Key         string
	Version     int
	Versions    []VersionInfo
	CreatedAt   time.Time
	Composition *composition.Composition
	StrudelCode string
	Voices      []VoiceSummary
}

// VersionInfo describes one stored generation
type VersionInfo struct {
	Version   int
	CreatedAt time.Time
	Notes     int
	ID        string
}

// VoiceSummary aggregates the notes of one instrument
type VoiceSummary struct {
	Instrument string
	Notes      int
	Sources    []string
	MinPan     float64
	MaxPan     float64
	AvgVel     float64
	Solo       int
}

// Generator creates HTML reports
type Generator struct {
	cache *cache.Cache
	key   string
}

// NewGenerator creates a report generator for one cache key
func NewGenerator(c *cache.Cache, key string) *Generator {
	return &Generator{cache: c, key: key}
}

// LoadData loads the requested version (0 for latest) from the cache
func (g *Generator) LoadData(version int) (*ReportData, error) {
	entries, err := g.cache.History(g.key)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no cached compositions for %s", g.key)
	}

	data := &ReportData{Key: g.key}
	selected := entries[len(entries)-1]
	for _, e := range entries {
		info := VersionInfo{Version: e.Version, CreatedAt: e.CreatedAt}
		if e.Composition != nil {
			info.Notes = len(e.Composition.Notes)
			info.ID = e.Composition.ID
		}
		data.Versions = append(data.Versions, info)
		if e.Version == version {
			selected = e
		}
	}
	if version > 0 && selected.Version != version {
		return nil, fmt.Errorf("version %d not found for %s", version, g.key)
	}
	if selected.Composition == nil {
		return nil, fmt.Errorf("version %d of %s has no composition", selected.Version, g.key)
	}

	data.Version = selected.Version
	data.CreatedAt = selected.CreatedAt
	data.Composition = selected.Composition
	data.StrudelCode = selected.Strudel
	data.Voices = Summarize(selected.Composition)
	return data, nil
}

// Generate writes the HTML report and returns its path. An empty
// outputPath writes report.html next to the cached entry.
func (g *Generator) Generate(version int, outputPath string) (string, error) {
	data, err := g.LoadData(version)
	if err != nil {
		return "", fmt.Errorf("failed to load data: %w", err)
	}

	if outputPath == "" {
		outputPath = filepath.Join(g.cache.Dir(), g.key, fmt.Sprintf("report_v%03d.html", data.Version))
	}

	if err := os.WriteFile(outputPath, []byte(generateHTML(data)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return outputPath, nil
}

// GenerateFromData creates HTML from pre-loaded data
func GenerateFromData(data *ReportData) string {
	return generateHTML(data)
}

// Summarize groups notes by instrument in order of first appearance
func Summarize(c *composition.Composition) []VoiceSummary {
	if c == nil {
		return nil
	}
	index := map[string]int{}
	var voices []VoiceSummary
	sources := map[string]map[string]bool{}

	for _, n := range c.Notes {
		i, ok := index[n.Instrument]
		if !ok {
			i = len(voices)
			index[n.Instrument] = i
			voices = append(voices, VoiceSummary{Instrument: n.Instrument, MinPan: n.Pan, MaxPan: n.Pan})
			sources[n.Instrument] = map[string]bool{}
		}
		v := &voices[i]
		v.Notes++
		v.AvgVel += n.Velocity
		v.MinPan = min(v.MinPan, n.Pan)
		v.MaxPan = max(v.MaxPan, n.Pan)
		if n.IsSolo {
			v.Solo++
		}
		sources[n.Instrument][n.NodeID] = true
	}

	for i := range voices {
		v := &voices[i]
		v.AvgVel /= float64(v.Notes)
		for id := range sources[v.Instrument] {
			v.Sources = append(v.Sources, id)
		}
		sort.Strings(v.Sources)
	}
	return voices
}

// Helper functions

func featureRow(label string, v float64) string {
	pct := v * 100
	return fmt.Sprintf(`<tr><td>%s</td><td><div class="bar"><div style="width: %.0f%%; background: %s;"></div></div></td><td>%.2f</td></tr>`,
		label, pct, featureColor(pct), v)
}

func featureColor(pct float64) string {
	if pct >= 70 {
		return "#f85149"
	}
	if pct >= 40 {
		return "#d29922"
	}
	return "#3fb950"
}

func voicesTable(voices []VoiceSummary) string {
	if len(voices) == 0 {
		return `<div class="no-data">No notes</div>`
	}
	var sb strings.Builder
	sb.WriteString(`<table><tr><th>Voice</th><th>Notes</th><th>Solo</th><th>Pan</th><th>Avg velocity</th><th>From</th></tr>`)
	for _, v := range voices {
		sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%d</td><td>%d</td><td>%+.2f … %+.2f</td><td>%.2f</td><td>%s</td></tr>`,
			html.EscapeString(v.Instrument), v.Notes, v.Solo, v.MinPan, v.MaxPan, v.AvgVel,
			html.EscapeString(strings.Join(v.Sources, ", "))))
	}
	sb.WriteString(`</table>`)
	return sb.String()
}

func embellishmentsTable(c *composition.Composition) string {
	if len(c.Embellishments) == 0 {
		return `<div class="no-data">No linked notes</div>`
	}
	var sb strings.Builder
	sb.WriteString(`<table><tr><th>Note</th><th>Depth</th><th>Type</th><th>Notes</th></tr>`)
	for _, e := range c.Embellishments {
		sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td></tr>`,
			html.EscapeString(e.NodeID), e.Depth, e.Type, e.Phrase.Len()))
	}
	sb.WriteString(`</table>`)
	return sb.String()
}

func versionsList(data *ReportData) string {
	var sb strings.Builder
	sb.WriteString(`<ul class="versions">`)
	for _, v := range data.Versions {
		class := ""
		if v.Version == data.Version {
			class = ` class="current"`
		}
		sb.WriteString(fmt.Sprintf(`<li%s>v%03d · %s · %d notes</li>`,
			class, v.Version, v.CreatedAt.Format("2006-01-02 15:04"), v.Notes))
	}
	sb.WriteString(`</ul>`)
	return sb.String()
}

func generateHTML(data *ReportData) string {
	c := data.Composition
	name := html.EscapeString(c.NodeID)

	motifs := make([]string, 0, len(c.Motifs))
	for _, m := range c.Motifs {
		motifs = append(motifs, fmt.Sprintf("%s %v", m.ID, m.PitchPattern))
	}

	code := data.StrudelCode
	if code == "" {
		code = "// no Strudel code stored"
	}

	p := c.Prose
	features := strings.Join([]string{
		featureRow("Complexity", p.OverallComplexity),
		featureRow("Expressiveness", p.MusicalExpressiveness),
		featureRow("Content density", p.Density.ContentDensity),
		featureRow("List density", p.Density.ListDensity),
		featureRow("Vocabulary diversity", p.Linguistic.VocabularyDiversity),
		featureRow("Questions", p.Linguistic.QuestionRatio),
	}, "\n")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>sonigraph: %s</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent: #58a6ff;
            --border: #30363d;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
            padding: 2rem;
        }
        h1 { color: var(--accent); margin-bottom: 0.5rem; }
        .meta { color: var(--text-secondary); margin-bottom: 1.5rem; }
        .card { background: var(--bg-secondary); border: 1px solid var(--border); border-radius: 6px; padding: 1rem; margin-bottom: 1rem; }
        .card-title { font-weight: 600; margin-bottom: 0.75rem; }
        table { width: 100%%; border-collapse: collapse; }
        th, td { text-align: left; padding: 0.25rem 0.5rem; border-bottom: 1px solid var(--border); }
        .bar { background: var(--bg-primary); height: 8px; border-radius: 4px; width: 200px; }
        .bar div { height: 8px; border-radius: 4px; }
        pre { background: var(--bg-primary); padding: 1rem; overflow-x: auto; font-size: 0.85rem; }
        .no-data { color: var(--text-secondary); font-style: italic; }
        .versions li.current { color: var(--accent); }
    </style>
</head>
<body>
    <h1>%s</h1>
    <div class="meta">%s · %.0f BPM · root %.1f Hz · %d notes · %.1f beats · version %d · %s</div>

    <div class="card"><div class="card-title">Prose</div><table>%s</table></div>
    <div class="card"><div class="card-title">Voices</div>%s</div>
    <div class="card"><div class="card-title">Linked notes</div>%s</div>
    <div class="card"><div class="card-title">Motifs</div>%s</div>
    <div class="card"><div class="card-title">Strudel</div><pre>%s</pre></div>
    <div class="card"><div class="card-title">History</div>%s</div>
</body>
</html>
`,
		name, name,
		c.ContentType, c.Tempo, c.RootFrequency, len(c.Notes), c.Beats(), data.Version,
		data.CreatedAt.Format(time.RFC3339),
		features,
		voicesTable(data.Voices),
		embellishmentsTable(c),
		html.EscapeString(strings.Join(motifs, " · ")),
		html.EscapeString(code),
		versionsList(data),
	)
}
