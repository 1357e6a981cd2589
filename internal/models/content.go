package models

// ModuleRecord is one activity or resource inside a course section.
// Visible is the LMS 0/1 flag; hidden modules are invisible to students
// and excluded from instructional design metrics.
type ModuleRecord struct {
	ModName string `json:"modname"`
	Visible int    `json:"visible"`
}

// IsVisible reports whether students can see the module.
func (m ModuleRecord) IsVisible() bool {
	return m.Visible != 0
}

// CourseSection groups the modules of one course topic/week.
type CourseSection struct {
	Name    string         `json:"name"`
	Modules []ModuleRecord `json:"modules"`
}
