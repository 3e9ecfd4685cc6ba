package glb

import (
	"gopkg.in/yaml.v2"
)

// PrintYAML displays the object in YAML format
func PrintYAML(obj any) {
	data, err := yaml.Marshal(obj)
	AssertNoError(err)
	Printf("%s", string(data))
}
