// Package protocol defines the JSON messages exchanged with the collaborator over the
// session channel. Every message is an object with a "type" field.
package protocol

// Type identifies a message on the channel.
type Type string

const (
	// Inbound, collaborator to engine.
	TypeStatus          Type = "status"
	TypeThinking        Type = "thinking"
	TypeComplete        Type = "complete"
	TypeSectionComplete Type = "section_complete"
	TypeError           Type = "error"

	// Outbound, engine to collaborator.
	TypeStartResearch     Type = "start_research"
	TypeRegenerateSection Type = "regenerate_section"
)

// Message is any protocol message.
type Message interface {
	MessageType() Type
}

// Status reports research progress.
type Status struct {
	Type     Type           `json:"type"`
	Step     string         `json:"step"`
	Message  string         `json:"message"`
	Progress int            `json:"progress"`
	Details  *StatusDetails `json:"details,omitempty"`
}

// StatusDetails carries whatever the current research step knows about.
type StatusDetails struct {
	Sections    []PlannedSection `json:"sections,omitempty"`
	Queries     []string         `json:"queries,omitempty"`
	SectionName string           `json:"section_name,omitempty"`
	Section     string           `json:"section,omitempty"`
	Completed   int              `json:"completed,omitempty"`
	Total       int              `json:"total,omitempty"`
}

// PlannedSection is a section announced while the research plan is made.
type PlannedSection struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Thinking is an interim, human-readable collaborator message.
type Thinking struct {
	Type     Type   `json:"type"`
	Message  string `json:"message"`
	Progress int    `json:"progress,omitempty"`
}

// Complete delivers the final report of a research run.
type Complete struct {
	Type   Type           `json:"type"`
	Result ResearchResult `json:"result"`
}

// ResearchResult is the payload of Complete.
type ResearchResult struct {
	Topic       string           `json:"topic"`
	Sections    []SectionSummary `json:"sections"`
	FinalReport string           `json:"final_report"`
	Timestamp   string           `json:"timestamp"`
}

// SectionSummary describes one researched section of the report.
type SectionSummary struct {
	Name    string   `json:"name"`
	Queries []string `json:"queries,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// SectionComplete answers a RegenerateSection. RequestID is empty when the collaborator
// predates request ids.
type SectionComplete struct {
	Type         Type   `json:"type"`
	RequestID    string `json:"request_id,omitempty"`
	SectionTitle string `json:"section_title"`
	Success      bool   `json:"success"`
	NewContent   string `json:"new_content,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Error reports a failure of the current collaborator operation.
type Error struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// StartResearch asks the collaborator to research topic and deliver a report.
type StartResearch struct {
	Type  Type   `json:"type"`
	Topic string `json:"topic"`
}

// RegenerateSection asks the collaborator to rewrite one section.
type RegenerateSection struct {
	Type           Type   `json:"type"`
	RequestID      string `json:"request_id"`
	SectionTitle   string `json:"section_title"`
	SectionContent string `json:"section_content"`
	Feedback       string `json:"feedback"`
	Topic          string `json:"topic"`
}

func (Status) MessageType() Type            { return TypeStatus }
func (Thinking) MessageType() Type          { return TypeThinking }
func (Complete) MessageType() Type          { return TypeComplete }
func (SectionComplete) MessageType() Type   { return TypeSectionComplete }
func (Error) MessageType() Type             { return TypeError }
func (StartResearch) MessageType() Type     { return TypeStartResearch }
func (RegenerateSection) MessageType() Type { return TypeRegenerateSection }

// SectionNames returns the names of the planned sections.
func (d *StatusDetails) SectionNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Name)
	}
	return names
}
