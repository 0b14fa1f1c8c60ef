package plan

// ContentSource is the upstream input for a build: structured resume-like
// data, a free-text prompt, or both. Parsing documents into this shape is an
// upstream concern.
type ContentSource struct {
	Name       string       `json:"name,omitempty"`
	Headline   string       `json:"headline,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Highlights []string     `json:"highlights,omitempty"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	LinkedIn   string       `json:"linkedin,omitempty"`
	GitHub     string       `json:"github,omitempty"`
	Website    string       `json:"website,omitempty"`
	Skills     []string     `json:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Projects   []Project    `json:"projects,omitempty"`
	Education  []Education  `json:"education,omitempty"`
	FreeText   string       `json:"free_text,omitempty"`
}

// Experience is one work-history entry.
type Experience struct {
	Company    string   `json:"company"`
	Title      string   `json:"title"`
	Start      string   `json:"start,omitempty"`
	End        string   `json:"end,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Project is one portfolio project entry.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Tech        []string `json:"tech,omitempty"`
}

// Education is one academic entry.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
	Year   string `json:"year,omitempty"`
}

// SectionData is the slice of a ContentSource handed to one section task.
// Only the fields relevant to the section are populated.
type SectionData struct {
	Name       string       `json:"name,omitempty"`
	Headline   string       `json:"headline,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Highlights []string     `json:"highlights,omitempty"`
	Skills     []string     `json:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Projects   []Project    `json:"projects,omitempty"`
	Education  []Education  `json:"education,omitempty"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	LinkedIn   string       `json:"linkedin,omitempty"`
	GitHub     string       `json:"github,omitempty"`
	Website    string       `json:"website,omitempty"`
	FreeText   string       `json:"free_text,omitempty"`
}

// SectionInfo describes one known portfolio section kind.
type SectionInfo struct {
	ID          string
	Name        string
	Description string
	// Files is the advisory output list used for planning and UI; the
	// actual written paths come from the worker result.
	Files []string
}

// Sections is the catalog of known section kinds, in their canonical order.
var Sections = []SectionInfo{
	{
		ID:          "hero",
		Name:        "Hero Section",
		Description: "Main header with name, title, and intro",
		Files:       []string{"/components/hero.html", "/styles/hero.css"},
	},
	{
		ID:          "about",
		Name:        "About Section",
		Description: "Personal introduction and summary",
		Files:       []string{"/components/about.html", "/styles/about.css"},
	},
	{
		ID:          "skills",
		Name:        "Skills Section",
		Description: "Technical skills and expertise",
		Files:       []string{"/components/skills.html", "/styles/skills.css"},
	},
	{
		ID:          "experience",
		Name:        "Experience Section",
		Description: "Work history and achievements",
		Files:       []string{"/components/experience.html", "/styles/experience.css"},
	},
	{
		ID:          "projects",
		Name:        "Projects Section",
		Description: "Portfolio of work and projects",
		Files:       []string{"/components/projects.html", "/styles/projects.css"},
	},
	{
		ID:          "education",
		Name:        "Education Section",
		Description: "Academic background",
		Files:       []string{"/components/education.html", "/styles/education.css"},
	},
	{
		ID:          "contact",
		Name:        "Contact Section",
		Description: "Contact information and form",
		Files:       []string{"/components/contact.html", "/styles/contact.css"},
	},
}

// SectionByID looks up a section kind in the catalog.
func SectionByID(id string) (SectionInfo, bool) {
	for _, s := range Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionInfo{}, false
}

// sectionData extracts the slice of the source a given section needs.
func sectionData(id string, src ContentSource) SectionData {
	switch id {
	case "hero":
		return SectionData{Name: src.Name, Headline: src.Headline, Summary: src.Summary, FreeText: src.FreeText}
	case "about":
		return SectionData{Summary: src.Summary, Highlights: src.Highlights, FreeText: src.FreeText}
	case "skills":
		return SectionData{Skills: src.Skills}
	case "experience":
		return SectionData{Experience: src.Experience}
	case "projects":
		return SectionData{Projects: src.Projects}
	case "education":
		return SectionData{Education: src.Education}
	case "contact":
		return SectionData{
			Email:    src.Email,
			Phone:    src.Phone,
			LinkedIn: src.LinkedIn,
			GitHub:   src.GitHub,
			Website:  src.Website,
		}
	default:
		return SectionData{}
	}
}
