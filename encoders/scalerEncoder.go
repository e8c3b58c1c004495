package encoders

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/htm-community/htmcore/utils"
)

var ErrOutOfRange = errors.New("encoders: input out of range")

/*
 w -- The number of bits that are set to encode a single value - the
"width" of the output signal. Must be odd.

n -- The number of bits in the output. Must be greater than or equal to w

radius -- Two inputs separated by more than the radius have non-overlapping
representations. Two inputs separated by less than the radius will
in general overlap in at least some of their bits. You can think
of this as the radius of the input.

resolution -- Two inputs separated by greater than, or equal to the resolution are guaranteed
to have different representations.

Exactly one of n, radius and resolution should be set.
*/
type ScalerEncoderParams struct {
	W          int
	MinVal     float64
	MaxVal     float64
	N          int
	Radius     float64
	Resolution float64
	Periodic   bool
	ClipInput  bool
	Name       string
	Verbosity  int
}

func NewScalerEncoderParams(width int, minVal float64, maxVal float64) *ScalerEncoderParams {
	return &ScalerEncoderParams{
		W:      width,
		MinVal: minVal,
		MaxVal: maxVal,
		Name:   "ScalerEncoder",
	}
}

/*
 A scalar encoder encodes a numeric (floating point) value into an array
of bits. The output is 0's except for a contiguous block of 1's. The
location of this contiguous block varies continuously with the input value.

The encoding is linear. If you want a nonlinear encoding, just transform
the scalar (e.g. by applying a logarithm function) before encoding.
It is not recommended to bin the data as a pre-processing step, e.g.
"1" = $0 - $.20, "2" = $.21-$0.80, "3" = $.81-$1.20, etc. as this
removes a lot of information and prevents nearby values from overlapping
in the output. Instead, use a continuous transformation that scales
the data (a piecewise transformation is fine).
*/
type ScalerEncoder struct {
	ScalerEncoderParams

	padding       int
	halfWidth     int
	rangeInternal float64
	valueRange    float64
	n             int
	//nInternal represents the output area excluding the possible padding on each side
	nInternal int
	logger    *slog.Logger
}

func NewScalerEncoder(p *ScalerEncoderParams) (*ScalerEncoder, error) {
	se := &ScalerEncoder{ScalerEncoderParams: *p}
	if se.W%2 == 0 || se.W < 1 {
		return nil, fmt.Errorf("width must be an odd number, got %d", se.W)
	}
	if se.MaxVal <= se.MinVal {
		return nil, fmt.Errorf("maxval %v must exceed minval %v", se.MaxVal, se.MinVal)
	}

	se.halfWidth = (se.W - 1) / 2
	if !se.Periodic {
		se.padding = se.halfWidth
	}
	se.rangeInternal = se.MaxVal - se.MinVal

	if se.N != 0 {
		if se.N < se.W {
			return nil, fmt.Errorf("n %d must be at least width %d", se.N, se.W)
		}
		if se.Periodic {
			se.Resolution = se.rangeInternal / float64(se.N)
		} else {
			se.Resolution = se.rangeInternal / float64(se.N-se.W)
		}
		se.Radius = float64(se.W) * se.Resolution
		se.n = se.N
	} else {
		switch {
		case se.Radius != 0:
			se.Resolution = se.Radius / float64(se.W)
		case se.Resolution != 0:
			se.Radius = se.Resolution * float64(se.W)
		default:
			return nil, errors.New("one of n, radius or resolution must be set")
		}
	}

	if se.Periodic {
		se.valueRange = se.rangeInternal
	} else {
		se.valueRange = se.rangeInternal + se.Resolution
	}
	if se.n == 0 {
		nfloat := float64(se.W)*(se.valueRange/se.Radius) + 2*float64(se.padding)
		se.n = int(math.Ceil(nfloat))
	}
	se.nInternal = se.n - 2*se.padding
	se.logger = slog.Default().With(slog.String("component", "encoder"), slog.String("name", se.Name))
	return se, nil
}

func (se *ScalerEncoder) Width() int {
	return se.n
}

/* Return the bit offset of the first bit to be set in the encoder output.
For periodic encoders, this can be a negative number when the encoded output
wraps around. */
func (se *ScalerEncoder) getFirstOnBit(input float64) (int, error) {
	if input < se.MinVal {
		//Don't clip periodic inputs. Out-of-range input is always an error
		if se.ClipInput && !se.Periodic {
			if se.Verbosity > 0 {
				se.logger.Debug("clipped input to minval", slog.Float64("input", input), slog.Float64("minval", se.MinVal))
			}
			input = se.MinVal
		} else {
			return 0, fmt.Errorf("%w: %v less than range %v - %v", ErrOutOfRange, input, se.MinVal, se.MaxVal)
		}
	}

	if se.Periodic {
		if input >= se.MaxVal {
			return 0, fmt.Errorf("%w: %v greater than periodic range %v - %v", ErrOutOfRange, input, se.MinVal, se.MaxVal)
		}
	} else if input > se.MaxVal {
		if !se.ClipInput {
			return 0, fmt.Errorf("%w: %v greater than range %v - %v", ErrOutOfRange, input, se.MinVal, se.MaxVal)
		}
		if se.Verbosity > 0 {
			se.logger.Debug("clipped input to maxval", slog.Float64("input", input), slog.Float64("maxval", se.MaxVal))
		}
		input = se.MaxVal
	}

	var centerbin int
	if se.Periodic {
		centerbin = int((input-se.MinVal)*float64(se.nInternal)/se.valueRange) + se.padding
	} else {
		centerbin = int(((input-se.MinVal)+se.Resolution/2)/se.Resolution) + se.padding
	}

	// We use the first bit to be set in the encoded output as the bucket index
	return centerbin - se.halfWidth, nil
}

/*
 Returns bucket index for given input
*/
func (se *ScalerEncoder) BucketIndex(input float64) (int, error) {
	minbin, err := se.getFirstOnBit(input)
	if err != nil {
		return 0, err
	}

	// For periodic encoders, the bucket index is the index of the center bit
	if se.Periodic {
		bucketIdx := minbin + se.halfWidth
		if bucketIdx < 0 {
			bucketIdx += se.n
		}
		return bucketIdx, nil
	}
	// for non-periodic encoders, the bucket index is the index of the left bit
	return minbin, nil
}

func (se *ScalerEncoder) Encode(input float64, learn bool) ([]bool, error) {
	minbin, err := se.getFirstOnBit(input)
	if err != nil {
		return nil, err
	}

	output := make([]bool, se.n)
	maxbin := minbin + 2*se.halfWidth

	if se.Periodic {
		// Handle the edges by computing wrap-around
		if maxbin >= se.n {
			bottombins := maxbin - se.n + 1
			utils.FillSliceRangeBool(output, true, 0, bottombins)
			maxbin = se.n - 1
		}
		if minbin < 0 {
			topbins := -minbin
			utils.FillSliceRangeBool(output, true, se.n-topbins, topbins)
			minbin = 0
		}
	}

	if minbin < 0 || maxbin >= se.n {
		return nil, fmt.Errorf("%w: bins %d-%d outside %d bits", ErrOutOfRange, minbin, maxbin, se.n)
	}

	// set the output (except for periodic wraparound)
	utils.FillSliceRangeBool(output, true, minbin, maxbin-minbin+1)

	if se.Verbosity >= 2 {
		se.logger.Debug("encoded",
			slog.Float64("input", input),
			slog.Int("n", se.n),
			slog.Float64("resolution", se.Resolution),
			slog.Float64("radius", se.Radius),
			slog.Any("on", utils.OnIndices(output)))
	}
	return output, nil
}
