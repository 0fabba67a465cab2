package models

// Course is the platform course record; CategoryID points at the category tree.
type Course struct {
	ID         string `db:"id" json:"id"`
	CategoryID string `db:"category_id" json:"category_id"`
	ShortName  string `db:"short_name" json:"short_name"`
	FullName   string `db:"full_name" json:"full_name"`
}

// Category is one node of the course category tree.
type Category struct {
	ID       string  `db:"id" json:"id"`
	ParentID *string `db:"parent_id" json:"parent_id,omitempty"`
	Name     string  `db:"name" json:"name"`
}
