package core

// Catalog is the hierarchical database metadata exposed by the backend.
type Catalog struct {
	Databases []Database `json:"databases"`
}

// Database groups the tables of one catalog database.
type Database struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Tables      []Table `json:"tables"`
}

// Table describes a table and its columns.
type Table struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Columns     []Column `json:"columns"`
	Location    string   `json:"location,omitempty"`
	InputFormat string   `json:"inputFormat,omitempty"`
}

// Column is a single column of a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Database returns the database with the given name.
func (c *Catalog) Database(name string) (*Database, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Databases {
		if c.Databases[i].Name == name {
			return &c.Databases[i], true
		}
	}
	return nil, false
}

// Table returns the table with the given name.
func (d *Database) Table(name string) (*Table, bool) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], true
		}
	}
	return nil, false
}
