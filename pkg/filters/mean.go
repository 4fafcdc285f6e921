package filters

import (
	"fmt"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// meanFilter applies a separable box kernel of the configured radius. The
// response at each voxel is the mean over the (2r+1)^3 neighborhood under
// the selected padding mode.
func meanFilter(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	if spec.Radius <= 0 {
		return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("mean filter radius %d must be positive", spec.Radius)})
	}
	n := 2*spec.Radius + 1
	k := make([]float64, n)
	for i := range k {
		k[i] = 1 / float64(n)
	}
	out := convolveSeparable(v.Data, v.Dims, k, k, k, spec.Padding)
	return response(v, out), nil
}
