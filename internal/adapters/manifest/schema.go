package manifest

// flakeFile is the YAML structure of a flake manifest. Requirement order in
// the file is the resolution and lock order.
type flakeFile struct {
	ID               string            `yaml:"id"`
	Description      string            `yaml:"description"`
	Requires         []string          `yaml:"requires"`
	NonFlakeRequires map[string]string `yaml:"nonFlakeRequires"`
	Outputs          any               `yaml:"outputs"`
}
