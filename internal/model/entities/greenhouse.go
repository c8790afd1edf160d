package entities

// Greenhouse is a site the controller keeps histories for.
type Greenhouse struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name,omitempty" yaml:"name"`
	Retention int    `json:"retention,omitempty" yaml:"retention"` // max points kept per history, 0 = service default
}
