package reconstruct

import (
	"errors"
	"fmt"
	"strings"
)

// Model names used as keys in a Result.
const (
	ModelNeRF              = "nerf"
	ModelGaussianSplatting = "gaussian_splatting"
)

// ErrUnknownMode is returned for an unrecognized model_type.
var ErrUnknownMode = errors.New("unknown model type")

// Mode selects which models a request runs.
type Mode string

const (
	ModeNeRF              Mode = ModelNeRF
	ModeGaussianSplatting Mode = ModelGaussianSplatting
	ModeBoth              Mode = "both"
)

// ParseMode accepts nerf, gaussian_splatting or both. Empty means both.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBoth, nil
	case ModeNeRF, ModeGaussianSplatting, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Models lists the model names the mode runs, in response order.
func (m Mode) Models() []string {
	switch m {
	case ModeNeRF:
		return []string{ModelNeRF}
	case ModeGaussianSplatting:
		return []string{ModelGaussianSplatting}
	default:
		return []string{ModelNeRF, ModelGaussianSplatting}
	}
}
