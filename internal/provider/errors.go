package provider

import (
	"fmt"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
)

// NewUnknownProviderError classifies a reference to an unregistered
// provider kind as a config fault: it can only happen if the config store
// failed to validate account.provider against the registry at load time.
func NewUnknownProviderError(kind model.ProviderKind) error {
	return faults.New(faults.KindConfig, "new_provider", fmt.Errorf("unknown provider kind %q", kind))
}
