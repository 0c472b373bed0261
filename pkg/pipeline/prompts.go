package pipeline

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Prompts holds the fixed instructions the pipelines send to the model.
// Operators can override them from a YAML file; the defaults mirror the
// wording the service shipped with.
type Prompts struct {
	CleanSystem    string `yaml:"clean_system" json:"clean_system"`
	CleanUser      string `yaml:"clean_user" json:"clean_user"`
	CritiqueSystem string `yaml:"critique_system" json:"critique_system"`
	CritiqueUser   string `yaml:"critique_user" json:"critique_user"`
	ReportSystem   string `yaml:"report_system" json:"report_system"`
	ReportUser     string `yaml:"report_user" json:"report_user"`
	MatchQuery     string `yaml:"match_query" json:"match_query"`
	ExplainSystem  string `yaml:"explain_system" json:"explain_system"`
	ExplainUser    string `yaml:"explain_user" json:"explain_user"`
}

// LoadPrompts reads overrides from path, falling back to the defaults
// when no path is given. A file that parses but leaves a field empty
// keeps the default for that field.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return prompts, err
	}

	var overrides Prompts
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return Prompts{}, err
	}
	if overrides == (Prompts{}) {
		return Prompts{}, errors.New("no prompts configured")
	}

	prompts.merge(overrides)
	return prompts, nil
}

func (p *Prompts) merge(o Prompts) {
	if o.CleanSystem != "" {
		p.CleanSystem = o.CleanSystem
	}
	if o.CleanUser != "" {
		p.CleanUser = o.CleanUser
	}
	if o.CritiqueSystem != "" {
		p.CritiqueSystem = o.CritiqueSystem
	}
	if o.CritiqueUser != "" {
		p.CritiqueUser = o.CritiqueUser
	}
	if o.ReportSystem != "" {
		p.ReportSystem = o.ReportSystem
	}
	if o.ReportUser != "" {
		p.ReportUser = o.ReportUser
	}
	if o.MatchQuery != "" {
		p.MatchQuery = o.MatchQuery
	}
	if o.ExplainSystem != "" {
		p.ExplainSystem = o.ExplainSystem
	}
	if o.ExplainUser != "" {
		p.ExplainUser = o.ExplainUser
	}
}

func DefaultPrompts() Prompts {
	return Prompts{
		CleanSystem: "Please clean this list of extracted information from PDF and images. " +
			"Ensure that all information is accurate and complete. " +
			"If you need to add or remove information, please do so.",
		CleanUser: "Clean the following raw data into a structured list format: %s",
		CritiqueSystem: "Please critique the following cleaned information. " +
			"If improvements are needed, specify which areas should be redone in the cleaning step. " +
			"If the data is correct, confirm that it is ready for reporting.",
		CritiqueUser: "Critique the following cleaned data: %s",
		ReportSystem: "Please generate a report based on the following cleaned information. " +
			"Ensure that all information is accurate and complete. " +
			"If you need to add or remove information, please do so.",
		ReportUser: "Generate a report based on the following cleaned data: %s",
		MatchQuery: "Please find the up to 5 trials that match the volunteer information. %s",
		ExplainSystem: "Please provide an explanation of why the following matched trials are matched to the volunteer. " +
			"Here is the volunteer information: %s",
		ExplainUser: "Explain the following trials: %s",
	}
}
