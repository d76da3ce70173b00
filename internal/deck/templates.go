package deck

import "html/template"

var templates = template.Must(template.New("deck").Parse(`
{{define "section"}}<section data-mood="{{.Mood}}" data-layout="{{.Layout}}" data-scene-id="{{.SceneID}}">
  <div class="deck-scene mood-{{.Mood}} layout-{{.Layout}}">
{{range .Blocks}}    {{template "container" .}}
{{end}}  </div>
{{if .Notes}}  <aside class="notes">{{.Notes}}</aside>
{{end}}</section>{{end}}

{{define "preview"}}<div class="deck-scene mood-{{.Mood}} layout-{{.Layout}}">
{{range .Blocks}}  {{template "container" .}}
{{end}}</div>{{end}}

{{define "container"}}<div class="block-container enter-{{.Enter}}{{if .Position}} beat-{{.Position}}{{end}}{{if .Incremental}} fragment{{end}}{{if .Visible}} visible{{end}}"{{if .Delay}} style="animation-delay: {{.Delay}}s;"{{end}}>{{.Markup}}</div>{{end}}

{{define "block-title"}}<div class="block-title">{{.Text}}</div>{{end}}
{{define "block-subtitle"}}<div class="block-subtitle">{{.Text}}</div>{{end}}
{{define "block-heading"}}<div class="block-heading">{{.Text}}</div>{{end}}
{{define "block-text"}}<div class="block-text">{{.Text}}</div>{{end}}

{{define "block-list"}}<ul class="block-list">{{range .}}<li{{if .Incremental}} class="fragment"{{end}}>{{.Text}}</li>{{end}}</ul>{{end}}

{{define "block-code"}}<div class="block-code"><pre><code class="language-{{.Language}}">{{.Code}}</code></pre></div>{{end}}

{{define "block-metric"}}<div class="block-metric"><div class="metric-value">{{.Value}}</div><div class="metric-label">{{.Label}}</div></div>{{end}}

{{define "block-quote"}}<blockquote class="block-quote">{{.Text}}{{if .Attribution}}<div class="quote-attribution">&mdash; {{.Attribution}}</div>{{end}}</blockquote>{{end}}

{{define "block-image"}}<div class="block-image"><img src="{{.Src}}" alt="{{.Alt}}"></div>{{end}}

{{define "block-comparison"}}<div class="block-comparison"><div class="comp-side"><div class="block-heading">{{.Left.Title}}</div><div class="block-text">{{.Left.Text}}</div></div><div class="comp-vs">VS</div><div class="comp-side"><div class="block-heading">{{.Right.Title}}</div><div class="block-text">{{.Right.Text}}</div></div></div>{{end}}

{{define "block-embed"}}<div class="block-embed">{{if .Video}}<video src="{{.Src}}" controls></video>{{else}}<iframe src="{{.Src}}" width="800" height="450"></iframe>{{end}}</div>{{end}}

{{define "block-embed-preview"}}<div class="block-embed"><em>[Embed: {{.Src}}]</em></div>{{end}}

{{define "markdown-stack"}}<section>{{range .}}{{template "markdown-page" .}}{{end}}</section>{{end}}

{{define "error-page"}}<section><h2>Error loading presentation</h2><p>{{.}}</p></section>{{end}}

{{define "markdown-page"}}<section data-markdown><textarea data-template>{{.Markdown}}</textarea>{{if .Notes}}<aside class="notes">{{.Notes}}</aside>{{end}}</section>{{end}}
`))
