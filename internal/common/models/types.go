package models

// ProjectType distinguishes the three allocation tracks the portal runs.
// Groups, projects and applications are always scoped to a single type.
type ProjectType string

const (
	ProjectTypeIDP      ProjectType = "IDP"
	ProjectTypeUROP     ProjectType = "UROP"
	ProjectTypeCapstone ProjectType = "CAPSTONE"
)

func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeIDP, ProjectTypeUROP, ProjectTypeCapstone:
		return true
	}
	return false
}
