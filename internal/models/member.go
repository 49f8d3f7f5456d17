package models

import "time"

// MemberSummary is a row in the administrative member listing
type MemberSummary struct {
	ID          string    `json:"id"`
	UserName    string    `json:"userName"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateCreated time.Time `json:"dateCreated"`
	IsLocked    bool      `json:"isLocked"`
	Roles       []string  `json:"roles"`
}

// MemberDetail is the editable view of a single member
type MemberDetail struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Roles     string `json:"roles"` // comma separated, e.g. "Admin,User"
}

// MemberSpec describes an add (ID empty) or edit request
type MemberSpec struct {
	ID        string
	UserName  string
	FirstName string
	LastName  string
	Password  string
	Roles     string
}

// MemberResult is returned by add/edit
type MemberResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Created bool   `json:"-"`
}
