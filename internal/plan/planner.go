// Package plan turns a content source into the ordered task graph a build
// executes. Planning is deterministic and side-effect-free: the same inputs
// always produce the same graph.
package plan

import "fmt"

// defaultSections is the fallback set when the source carries only a
// free-text prompt and nothing can be inferred from structured data.
var defaultSections = []string{"hero", "about", "skills", "experience", "projects"}

// CreatePlan produces the task graph for one build.
//
// Section selection: an explicit section list is filtered to known section
// kinds (unknown kinds are dropped silently). Without an explicit list,
// sections are inferred from the data present in the source. A "contact"
// section is always appended last among content sections.
//
// Task order is a single linear chain: init, style, each section depending on
// its immediate predecessor, then finalize. Each task receives only the slice
// of the source it needs.
func CreatePlan(buildID string, source ContentSource, style string, sections []string) (*Graph, error) {
	selected := selectSections(source, sections)

	sectionIDs := make([]string, 0, len(selected))
	for _, s := range selected {
		sectionIDs = append(sectionIDs, s.ID)
	}

	tasks := []*Task{
		{
			ID:          "init",
			Kind:        TaskKindInit,
			Name:        "Initialize Project",
			Description: "Create base files and structure",
			Status:      TaskStatusPending,
			Context: InitContext{
				Style:    style,
				Name:     source.Name,
				Headline: source.Headline,
				Sections: sectionIDs,
			},
			OutputFiles: []string{"/index.html", "/styles/globals.css", "/scripts/main.js"},
		},
		{
			ID:          "style",
			Kind:        TaskKindStyle,
			Name:        "Generate Styles",
			Description: "Create theme and design tokens",
			DependsOn:   []string{"init"},
			Status:      TaskStatusPending,
			Context:     StyleContext{Style: style},
			OutputFiles: []string{"/styles/theme.css", "/styles/variables.css"},
		},
	}

	prev := "style"
	for _, info := range selected {
		tasks = append(tasks, &Task{
			ID:          info.ID,
			Kind:        TaskKindSection,
			Name:        info.Name,
			Description: info.Description,
			DependsOn:   []string{prev},
			Status:      TaskStatusPending,
			Context: SectionContext{
				SectionID: info.ID,
				Style:     style,
				Data:      sectionData(info.ID, source),
			},
			OutputFiles: info.Files,
		})
		prev = info.ID
	}

	tasks = append(tasks, &Task{
		ID:          "finalize",
		Kind:        TaskKindFinalize,
		Name:        "Finalize Portfolio",
		Description: "Assemble all sections and create final output",
		DependsOn:   []string{prev},
		Status:      TaskStatusPending,
		Context: FinalizeContext{
			Style:    style,
			Title:    source.Name,
			Sections: sectionIDs,
		},
		OutputFiles: []string{"/index.html"},
	})

	g, err := NewGraph(buildID, tasks)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return g, nil
}

// selectSections resolves the section list for a build. Explicit lists keep
// the caller's order; inferred lists follow catalog order. An empty result is
// valid: the plan then carries init, style, and finalize only.
func selectSections(source ContentSource, explicit []string) []SectionInfo {
	var ids []string
	for _, id := range explicit {
		if _, ok := SectionByID(id); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = inferSections(source)
	}
	if len(ids) == 0 {
		return nil
	}

	// Contact always closes the content sections.
	withoutContact := ids[:0:0]
	for _, id := range ids {
		if id != "contact" {
			withoutContact = append(withoutContact, id)
		}
	}
	ids = append(withoutContact, "contact")

	selected := make([]SectionInfo, 0, len(ids))
	for _, id := range ids {
		info, _ := SectionByID(id)
		selected = append(selected, info)
	}
	return selected
}

// inferSections derives the section set from the data present in the source.
// A free-text-only source falls back to the fixed default set.
func inferSections(source ContentSource) []string {
	var sections []string
	if len(source.Skills) > 0 {
		sections = append(sections, "skills")
	}
	if len(source.Experience) > 0 {
		sections = append(sections, "experience")
	}
	if len(source.Projects) > 0 {
		sections = append(sections, "projects")
	}
	if len(source.Education) > 0 {
		sections = append(sections, "education")
	}
	if len(sections) == 0 && source.FreeText != "" {
		return defaultSections
	}
	return sections
}
