package models

// User is the public profile used to render chat lists.
type User struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Image    string `db:"image" json:"image"`
}
