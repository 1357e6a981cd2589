package models

// Course is a catalog entry from the LMS.
type Course struct {
	ID           int64  `json:"id"`
	FullName     string `json:"fullname"`
	ShortName    string `json:"shortname"`
	CategoryID   int64  `json:"categoryid"`
	StartDate    int64  `json:"startdate"`
	EndDate      int64  `json:"enddate"`
	TimeCreated  int64  `json:"timecreated"`
	TimeModified int64  `json:"timemodified"`
}

// Category is an LMS course category node. Parent of 0 marks a root.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
}

// UserRole is a role assignment on an enrolled user.
type UserRole struct {
	RoleID int `json:"roleid"`
}

// EnrolledUser is a course participant, used for instructor resolution.
type EnrolledUser struct {
	ID       int64      `json:"id"`
	FullName string     `json:"fullname"`
	Roles    []UserRole `json:"roles"`
}
