package worker

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	xhtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/foliobuilder/internal/plan"
)

// Template is the built-in generation worker. It renders portfolio HTML and
// CSS deterministically from task context: section markup from the content
// data, a theme from the style preference, and a final assembled index.html.
// User-authored text (summary, highlights, free text) is treated as markdown.
type Template struct {
	md     goldmark.Markdown
	titler cases.Caser
}

// NewTemplate creates the built-in template worker.
func NewTemplate() *Template {
	return &Template{
		md:     goldmark.New(),
		titler: cases.Title(language.English),
	}
}

// palette holds the design tokens for one style preference.
type palette struct {
	primary    string
	background string
	surface    string
	text       string
	accent     string
	font       string
}

var palettes = map[string]palette{
	"modern": {
		primary:    "#2563eb",
		background: "#0f172a",
		surface:    "#1e293b",
		text:       "#e2e8f0",
		accent:     "#38bdf8",
		font:       "'Inter', system-ui, sans-serif",
	},
	"minimal": {
		primary:    "#111827",
		background: "#ffffff",
		surface:    "#f9fafb",
		text:       "#1f2937",
		accent:     "#6b7280",
		font:       "'Helvetica Neue', Arial, sans-serif",
	},
	"bold": {
		primary:    "#db2777",
		background: "#18181b",
		surface:    "#27272a",
		text:       "#fafafa",
		accent:     "#facc15",
		font:       "'Space Grotesk', sans-serif",
	},
	"classic": {
		primary:    "#7c2d12",
		background: "#fffbeb",
		surface:    "#fef3c7",
		text:       "#292524",
		accent:     "#b45309",
		font:       "'Georgia', 'Times New Roman', serif",
	},
}

func paletteFor(style string) palette {
	if p, ok := palettes[style]; ok {
		return p
	}
	return palettes["modern"]
}

// Execute renders the outputs for one task. Unknown context shapes fail the
// task without failing the call.
func (w *Template) Execute(ctx context.Context, task *plan.Task, files map[string]string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{TaskID: task.ID}, err
	}

	var outputs []Output
	switch c := task.Context.(type) {
	case plan.InitContext:
		outputs = w.renderInit(c)
	case plan.StyleContext:
		outputs = w.renderStyle(c)
	case plan.SectionContext:
		outputs = w.renderSection(c)
	case plan.FinalizeContext:
		assembled, err := w.renderFinalize(c, files)
		if err != nil {
			return Result{TaskID: task.ID, Success: false, Error: err.Error()}, nil
		}
		outputs = assembled
	default:
		return Result{
			TaskID:  task.ID,
			Success: false,
			Error:   fmt.Sprintf("unsupported task context for task %q", task.ID),
		}, nil
	}

	return Result{TaskID: task.ID, Success: true, Outputs: outputs}, nil
}

func (w *Template) renderInit(c plan.InitContext) []Output {
	title := c.Name
	if title == "" {
		title = "Portfolio"
	}

	var containers strings.Builder
	for _, id := range c.Sections {
		fmt.Fprintf(&containers, "    <div id=%q class=\"section-slot\"></div>\n", id)
	}

	index := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <link rel="stylesheet" href="/styles/globals.css">
  <link rel="stylesheet" href="/styles/variables.css">
  <link rel="stylesheet" href="/styles/theme.css">
  <script src="/scripts/main.js" defer></script>
</head>
<body>
  <main>
%s  </main>
</body>
</html>
`, html.EscapeString(title), containers.String())

	globals := `*, *::before, *::after { box-sizing: border-box; }
html { scroll-behavior: smooth; }
body { margin: 0; font-family: var(--font-body); color: var(--color-text); background: var(--color-background); }
main { max-width: 960px; margin: 0 auto; padding: 0 1.5rem; }
section { padding: 4rem 0; }
h1, h2, h3 { line-height: 1.2; }
a { color: var(--color-accent); }
`

	script := `document.addEventListener('DOMContentLoaded', () => {
  for (const link of document.querySelectorAll('a[href^="#"]')) {
    link.addEventListener('click', (e) => {
      const target = document.querySelector(link.getAttribute('href'));
      if (target) {
        e.preventDefault();
        target.scrollIntoView({ behavior: 'smooth' });
      }
    });
  }
});
`

	return []Output{
		{Path: "/index.html", Content: index, ContentType: "html"},
		{Path: "/styles/globals.css", Content: globals, ContentType: "css"},
		{Path: "/scripts/main.js", Content: script, ContentType: "js"},
	}
}

func (w *Template) renderStyle(c plan.StyleContext) []Output {
	p := paletteFor(c.Style)

	variables := fmt.Sprintf(`:root {
  --color-primary: %s;
  --color-background: %s;
  --color-surface: %s;
  --color-text: %s;
  --color-accent: %s;
  --font-body: %s;
  --space-s: 0.5rem;
  --space-m: 1rem;
  --space-l: 2rem;
  --radius: 0.5rem;
}
`, p.primary, p.background, p.surface, p.text, p.accent, p.font)

	theme := `.card { background: var(--color-surface); border-radius: var(--radius); padding: var(--space-l); }
.button { display: inline-block; background: var(--color-primary); color: var(--color-background); padding: var(--space-s) var(--space-l); border-radius: var(--radius); text-decoration: none; }
.tag { display: inline-block; background: var(--color-surface); color: var(--color-accent); padding: 0.25rem 0.75rem; border-radius: 999px; margin: 0.25rem; font-size: 0.875rem; }
@media (max-width: 640px) { main { padding: 0 1rem; } section { padding: 2.5rem 0; } }
`

	return []Output{
		{Path: "/styles/theme.css", Content: theme, ContentType: "css"},
		{Path: "/styles/variables.css", Content: variables, ContentType: "css"},
	}
}

func (w *Template) renderSection(c plan.SectionContext) []Output {
	heading := w.titler.String(c.SectionID)
	var body strings.Builder

	switch c.SectionID {
	case "hero":
		fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(orDefault(c.Data.Name, "Welcome")))
		if c.Data.Headline != "" {
			fmt.Fprintf(&body, "<p class=\"headline\">%s</p>\n", html.EscapeString(c.Data.Headline))
		}
		if c.Data.Summary != "" {
			body.WriteString(w.markdown(c.Data.Summary))
		}
		body.WriteString("<a class=\"button\" href=\"#contact\">Get in touch</a>\n")
	case "about":
		fmt.Fprintf(&body, "<h2>%s</h2>\n", heading)
		if c.Data.Summary != "" {
			body.WriteString(w.markdown(c.Data.Summary))
		}
		if len(c.Data.Highlights) > 0 {
			body.WriteString("<ul class=\"highlights\">\n")
			for _, h := range c.Data.Highlights {
				fmt.Fprintf(&body, "  <li>%s</li>\n", w.inlineMarkdown(h))
			}
			body.WriteString("</ul>\n")
		}
	case "skills":
		fmt.Fprintf(&body, "<h2>%s</h2>\n<div class=\"skills\">\n", heading)
		for _, s := range c.Data.Skills {
			fmt.Fprintf(&body, "  <span class=\"tag\">%s</span>\n", html.EscapeString(s))
		}
		body.WriteString("</div>\n")
	case "experience":
		fmt.Fprintf(&body, "<h2>%s</h2>\n", heading)
		for _, e := range c.Data.Experience {
			body.WriteString("<article class=\"card\">\n")
			fmt.Fprintf(&body, "  <h3>%s</h3>\n", html.EscapeString(e.Title))
			fmt.Fprintf(&body, "  <p class=\"meta\">%s", html.EscapeString(e.Company))
			if e.Start != "" || e.End != "" {
				fmt.Fprintf(&body, " · %s – %s", html.EscapeString(e.Start), html.EscapeString(orDefault(e.End, "present")))
			}
			body.WriteString("</p>\n")
			if len(e.Highlights) > 0 {
				body.WriteString("  <ul>\n")
				for _, h := range e.Highlights {
					fmt.Fprintf(&body, "    <li>%s</li>\n", w.inlineMarkdown(h))
				}
				body.WriteString("  </ul>\n")
			}
			body.WriteString("</article>\n")
		}
	case "projects":
		fmt.Fprintf(&body, "<h2>%s</h2>\n", heading)
		for _, p := range c.Data.Projects {
			body.WriteString("<article class=\"card\">\n")
			if p.URL != "" {
				fmt.Fprintf(&body, "  <h3><a href=%q>%s</a></h3>\n", p.URL, html.EscapeString(p.Name))
			} else {
				fmt.Fprintf(&body, "  <h3>%s</h3>\n", html.EscapeString(p.Name))
			}
			if p.Description != "" {
				body.WriteString(w.markdown(p.Description))
			}
			for _, tech := range p.Tech {
				fmt.Fprintf(&body, "  <span class=\"tag\">%s</span>\n", html.EscapeString(tech))
			}
			body.WriteString("</article>\n")
		}
	case "education":
		fmt.Fprintf(&body, "<h2>%s</h2>\n", heading)
		for _, e := range c.Data.Education {
			body.WriteString("<article class=\"card\">\n")
			fmt.Fprintf(&body, "  <h3>%s</h3>\n", html.EscapeString(e.School))
			if e.Degree != "" {
				fmt.Fprintf(&body, "  <p>%s</p>\n", html.EscapeString(e.Degree))
			}
			if e.Year != "" {
				fmt.Fprintf(&body, "  <p class=\"meta\">%s</p>\n", html.EscapeString(e.Year))
			}
			body.WriteString("</article>\n")
		}
	case "contact":
		fmt.Fprintf(&body, "<h2>%s</h2>\n<ul class=\"contact-list\">\n", heading)
		writeContact(&body, "Email", c.Data.Email, "mailto:"+c.Data.Email)
		writeContact(&body, "Phone", c.Data.Phone, "tel:"+c.Data.Phone)
		writeContact(&body, "LinkedIn", c.Data.LinkedIn, c.Data.LinkedIn)
		writeContact(&body, "GitHub", c.Data.GitHub, c.Data.GitHub)
		writeContact(&body, "Website", c.Data.Website, c.Data.Website)
		body.WriteString("</ul>\n")
	default:
		fmt.Fprintf(&body, "<h2>%s</h2>\n", heading)
		if c.Data.FreeText != "" {
			body.WriteString(w.markdown(c.Data.FreeText))
		}
	}

	fragment := fmt.Sprintf("<section id=%q class=\"section section-%s\">\n%s</section>\n",
		c.SectionID, c.SectionID, body.String())
	css := fmt.Sprintf(".section-%s { border-bottom: 1px solid var(--color-surface); }\n", c.SectionID)

	return []Output{
		{Path: "/components/" + c.SectionID + ".html", Content: fragment, ContentType: "html"},
		{Path: "/styles/" + c.SectionID + ".css", Content: css, ContentType: "css"},
	}
}

// renderFinalize assembles the section fragments into the index.html skeleton
// produced by the init task. The document is parsed rather than spliced so a
// malformed fragment surfaces here instead of in the browser.
func (w *Template) renderFinalize(c plan.FinalizeContext, files map[string]string) ([]Output, error) {
	skeleton, ok := files["/index.html"]
	if !ok {
		return nil, fmt.Errorf("finalize: /index.html not found in build files")
	}

	doc, err := xhtml.Parse(strings.NewReader(skeleton))
	if err != nil {
		return nil, fmt.Errorf("finalize: parse index.html: %w", err)
	}

	var stylesheets []string
	for _, id := range c.Sections {
		fragment, ok := files["/components/"+id+".html"]
		if !ok {
			continue
		}
		slot := findElementByID(doc, id)
		if slot == nil {
			return nil, fmt.Errorf("finalize: no slot for section %q in index.html", id)
		}
		nodes, err := xhtml.ParseFragment(strings.NewReader(fragment), slot)
		if err != nil {
			return nil, fmt.Errorf("finalize: parse fragment %q: %w", id, err)
		}
		for _, n := range nodes {
			slot.AppendChild(n)
		}
		stylesheets = append(stylesheets, "/styles/"+id+".css")
	}

	if head := findElement(doc, "head"); head != nil {
		for _, href := range stylesheets {
			link := &xhtml.Node{
				Type: xhtml.ElementNode,
				Data: "link",
				Attr: []xhtml.Attribute{
					{Key: "rel", Val: "stylesheet"},
					{Key: "href", Val: href},
				},
			}
			head.AppendChild(link)
		}
	}

	var buf bytes.Buffer
	if err := xhtml.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("finalize: render index.html: %w", err)
	}

	return []Output{{Path: "/index.html", Content: buf.String(), ContentType: "html"}}, nil
}

// markdown renders user-authored text as HTML. Render errors fall back to
// escaped plain text; bad input should never fail a section.
func (w *Template) markdown(src string) string {
	var buf bytes.Buffer
	if err := w.md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>\n"
	}
	return buf.String()
}

// inlineMarkdown renders a one-line snippet, stripping the wrapping <p> tags
// goldmark adds around a bare paragraph.
func (w *Template) inlineMarkdown(src string) string {
	out := strings.TrimSpace(w.markdown(src))
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return out
}

func writeContact(b *strings.Builder, label, value, href string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  <li><span class=\"label\">%s</span> <a href=%q>%s</a></li>\n",
		label, href, html.EscapeString(value))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// findElementByID walks the parsed document for an element with the given id
// attribute.
func findElementByID(n *xhtml.Node, id string) *xhtml.Node {
	if n.Type == xhtml.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findElement returns the first element with the given tag name.
func findElement(n *xhtml.Node, tag string) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
