// Package entities registers the built-in entity schemas with the core
// registry. Import it for its side effects.
package entities

import (
	_ "embed"

	"github.com/JonMunkholm/subtrack/internal/core"
)

var (
	//go:embed contracts.yaml
	contractsYAML []byte

	//go:embed assets.yaml
	assetsYAML []byte

	//go:embed employees.yaml
	employeesYAML []byte
)

func init() {
	for _, data := range [][]byte{contractsYAML, assetsYAML, employeesYAML} {
		core.Register(core.MustParseSchema(data))
	}
}
