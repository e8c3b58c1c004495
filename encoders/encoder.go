package encoders

import (
	"github.com/htm-community/htmcore/utils"
)

/*
 An encoder turns a value into a fixed width bit vector the spatial
pooler consumes as input.
*/
type Encoder interface {
	//Width in bits
	Width() int
	Encode(input float64, learn bool) ([]bool, error)
}

//Encodes a value into the dense 0/1 form the spatial pooler takes
func EncodeInput(e Encoder, input float64, learn bool) ([]int, error) {
	bits, err := e.Encode(input, learn)
	if err != nil {
		return nil, err
	}
	return utils.Bool2Int(bits), nil
}

//Encodes multivariable input by concatenating its encoders
type MultiEncoder struct {
	Encoders []Encoder
}

func (e *MultiEncoder) Width() int {
	result := 0
	for _, val := range e.Encoders {
		result += val.Width()
	}
	return result
}

//Encodes one value per sub encoder
func (e *MultiEncoder) EncodeAll(inputs []float64, learn bool) ([]bool, error) {
	result := make([]bool, 0, e.Width())
	for i, enc := range e.Encoders {
		bits, err := enc.Encode(inputs[i], learn)
		if err != nil {
			return nil, err
		}
		result = append(result, bits...)
	}
	return result, nil
}
