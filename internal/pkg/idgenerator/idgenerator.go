// nolint: gochecknoglobals
package idgenerator

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	RunIdLength                = 10
	EtcdNamespaceForTestLength = 10
)

// alphabet used in ID generation.
var alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func RunId() string {
	return gonanoid.MustGenerate(alphabet, RunIdLength)
}

func EtcdNamespaceForTest() string {
	return gonanoid.MustGenerate(alphabet, EtcdNamespaceForTestLength)
}

func Random(length int) string {
	return gonanoid.MustGenerate(alphabet, length)
}
