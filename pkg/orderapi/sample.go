package orderapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"cg/pkg/domain"
)

// Sample is one normalized sample entry of an order. A sample carrying an
// InternalID references an existing stored sample (a rerun); all lab-intake
// fields are then optional.
type Sample struct {
	Name            string                 `json:"name"`
	InternalID      string                 `json:"internal_id,omitempty"`
	CaseName        string                 `json:"case_name,omitempty"`
	CaseInternalID  string                 `json:"case_internal_id,omitempty"`
	Application     string                 `json:"application"`
	Sex             domain.Sex             `json:"sex"`
	Status          domain.PhenotypeStatus `json:"status,omitempty"`
	Mother          string                 `json:"mother,omitempty"`
	Father          string                 `json:"father,omitempty"`
	Container       string                 `json:"container,omitempty"`
	ContainerName   string                 `json:"container_name,omitempty"`
	WellPosition    string                 `json:"well_position,omitempty"`
	Source          string                 `json:"source,omitempty"`
	SubjectID       string                 `json:"subject_id,omitempty"`
	Priority        domain.Priority        `json:"priority"`
	Tumour          bool                   `json:"tumour,omitempty"`
	Control         domain.ControlKind     `json:"control,omitempty"`
	Panels          []string               `json:"panels,omitempty"`
	Cohorts         []string               `json:"cohorts,omitempty"`
	Synopsis        string                 `json:"synopsis,omitempty"`
	Pool            string                 `json:"pool,omitempty"`
	Organism        string                 `json:"organism,omitempty"`
	ReferenceGenome string                 `json:"reference_genome,omitempty"`
	Comment         string                 `json:"comment,omitempty"`
}

// IsNew reports whether the sample must be created rather than reused.
func (s Sample) IsNew() bool { return s.InternalID == "" }

// stringList accepts either a JSON string or a list of strings on the wire.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = []string{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// rawSample mirrors the customer-submitted sample shape.
type rawSample struct {
	Name            string     `json:"name"`
	InternalID      string     `json:"internal_id"`
	CaseName        string     `json:"case_name"`
	CaseInternalID  string     `json:"case_internal_id"`
	Application     string     `json:"application"`
	Sex             string     `json:"sex"`
	Status          string     `json:"status"`
	Mother          string     `json:"mother"`
	Father          string     `json:"father"`
	Container       string     `json:"container"`
	ContainerName   string     `json:"container_name"`
	WellPosition    string     `json:"well_position"`
	Source          string     `json:"source"`
	SubjectID       string     `json:"subject_id"`
	Priority        string     `json:"priority"`
	Tumour          bool       `json:"tumour"`
	Control         string     `json:"control"`
	Panels          stringList `json:"panels"`
	Cohorts         stringList `json:"cohorts"`
	Synopsis        stringList `json:"synopsis"`
	Pool            string     `json:"pool"`
	Organism        string     `json:"organism"`
	ReferenceGenome string     `json:"reference_genome"`
	Comment         string     `json:"comment"`
}

func normalizeSample(raw rawSample, typ OrderType) (Sample, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Sample{}, MalformedOrderError{Field: "name", Reason: "sample name is required"}
	}

	sex, err := parseSex(raw.Sex, name)
	if err != nil {
		return Sample{}, err
	}
	status, err := parseStatus(raw.Status, name)
	if err != nil {
		return Sample{}, err
	}
	priority, err := parsePriority(raw.Priority, name)
	if err != nil {
		return Sample{}, err
	}
	control, err := parseControl(raw.Control, name)
	if err != nil {
		return Sample{}, err
	}
	well, err := canonicalWell(raw.WellPosition, name)
	if err != nil {
		return Sample{}, err
	}

	s := Sample{
		Name:           name,
		InternalID:     strings.TrimSpace(raw.InternalID),
		CaseName:       strings.TrimSpace(raw.CaseName),
		CaseInternalID: strings.TrimSpace(raw.CaseInternalID),
		Application:    strings.TrimSpace(raw.Application),
		Sex:            sex,
		Status:         status,
		Mother:         strings.TrimSpace(raw.Mother),
		Father:         strings.TrimSpace(raw.Father),
		Container:      strings.TrimSpace(raw.Container),
		ContainerName:  strings.TrimSpace(raw.ContainerName),
		WellPosition:   well,
		Source:         strings.TrimSpace(raw.Source),
		SubjectID:      strings.TrimSpace(raw.SubjectID),
		Priority:       priority,
		Tumour:         raw.Tumour,
		Control:        control,
		Panels:         trimAll(raw.Panels),
		Cohorts:        trimAll(raw.Cohorts),
		Synopsis:       strings.Join(trimAll(raw.Synopsis), " "),
		Pool:           strings.TrimSpace(raw.Pool),
		Organism:       strings.TrimSpace(raw.Organism),
		ReferenceGenome: strings.TrimSpace(raw.ReferenceGenome),
		Comment:        strings.TrimSpace(raw.Comment),
	}

	if err := requireFamilyFields(s, typ); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// requireFamilyFields enforces the required-for-new-sample rule: lab intake
// fields are mandatory only for samples that do not reference an existing
// internal id.
func requireFamilyFields(s Sample, typ OrderType) error {
	if s.IsNew() && s.Application == "" {
		return MalformedOrderError{Field: "application", Sample: s.Name, Reason: "application is required for new samples"}
	}
	switch typ.Family() {
	case FamilyCase:
		if s.CaseName == "" && s.CaseInternalID == "" {
			return MalformedOrderError{Field: "case_name", Sample: s.Name, Reason: "case name or case internal id is required"}
		}
		if s.IsNew() {
			if s.Container == "" {
				return MalformedOrderError{Field: "container", Sample: s.Name, Reason: "container is required for new samples"}
			}
			if s.Source == "" {
				return MalformedOrderError{Field: "source", Sample: s.Name, Reason: "source is required for new samples"}
			}
			if s.SubjectID == "" {
				return MalformedOrderError{Field: "subject_id", Sample: s.Name, Reason: "subject id is required for new samples"}
			}
		}
	case FamilyPool:
		if s.Pool == "" {
			return MalformedOrderError{Field: "pool", Sample: s.Name, Reason: "pool name is required"}
		}
	case FamilyMicrobial:
		if s.IsNew() && s.Control == domain.ControlNone && s.Organism == "" {
			return MalformedOrderError{Field: "organism", Sample: s.Name, Reason: "organism is required for new samples"}
		}
	case FamilyFastq, FamilyPacBio:
		if s.IsNew() && s.Source == "" {
			return MalformedOrderError{Field: "source", Sample: s.Name, Reason: "source is required for new samples"}
		}
	}
	return nil
}

func parseSex(raw, sample string) (domain.Sex, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "m", "male":
		return domain.SexMale, nil
	case "f", "female":
		return domain.SexFemale, nil
	case "", "unknown":
		return domain.SexUnknown, nil
	}
	return "", MalformedOrderError{Field: "sex", Sample: sample, Reason: fmt.Sprintf("unknown sex %q", raw)}
}

func parseStatus(raw, sample string) (domain.PhenotypeStatus, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return domain.StatusUnknown, nil
	case string(domain.StatusAffected):
		return domain.StatusAffected, nil
	case string(domain.StatusUnaffected):
		return domain.StatusUnaffected, nil
	case string(domain.StatusUnknown):
		return domain.StatusUnknown, nil
	}
	return "", MalformedOrderError{Field: "status", Sample: sample, Reason: fmt.Sprintf("unknown status %q", raw)}
}

func parsePriority(raw, sample string) (domain.Priority, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return domain.PriorityStandard, nil
	case string(domain.PriorityResearch):
		return domain.PriorityResearch, nil
	case string(domain.PriorityStandard):
		return domain.PriorityStandard, nil
	case string(domain.PriorityPriority):
		return domain.PriorityPriority, nil
	case string(domain.PriorityExpress):
		return domain.PriorityExpress, nil
	}
	return "", MalformedOrderError{Field: "priority", Sample: sample, Reason: fmt.Sprintf("unknown priority %q", raw)}
}

func parseControl(raw, sample string) (domain.ControlKind, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return domain.ControlNone, nil
	case string(domain.ControlNegative):
		return domain.ControlNegative, nil
	case string(domain.ControlPositive):
		return domain.ControlPositive, nil
	}
	return "", MalformedOrderError{Field: "control", Sample: sample, Reason: fmt.Sprintf("unknown control kind %q", raw)}
}

// canonicalWell rewrites plate positions to the canonical "A:1" form. Both
// "A1" and "A:1" are accepted on the wire.
func canonicalWell(raw, sample string) (string, error) {
	well := strings.TrimSpace(strings.ToUpper(raw))
	if well == "" {
		return "", nil
	}
	well = strings.ReplaceAll(well, ":", "")
	if len(well) < 2 {
		return "", MalformedOrderError{Field: "well_position", Sample: sample, Reason: fmt.Sprintf("invalid well %q", raw)}
	}
	row := well[0]
	col := well[1:]
	if row < 'A' || row > 'H' {
		return "", MalformedOrderError{Field: "well_position", Sample: sample, Reason: fmt.Sprintf("invalid well row %q", raw)}
	}
	n := 0
	for _, r := range col {
		if r < '0' || r > '9' {
			return "", MalformedOrderError{Field: "well_position", Sample: sample, Reason: fmt.Sprintf("invalid well column %q", raw)}
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 12 {
		return "", MalformedOrderError{Field: "well_position", Sample: sample, Reason: fmt.Sprintf("well column out of range %q", raw)}
	}
	return fmt.Sprintf("%c:%d", row, n), nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
