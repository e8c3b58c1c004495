package htm

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/htm-community/htmcore/utils"
)

/*
 HtmConfig holds every parameter of the spatial pooler, the temporal memory
and the column topology they share. Build one with NewHtmConfig, adjust the
fields, then hand it to NewConnections. It must not be modified afterwards.
*/
type HtmConfig struct {
	InputDimensions  []int
	ColumnDimensions []int
	CellsPerColumn   int
	// Dimension order used for flat index <-> coordinate mapping.
	IsColumnMajor bool

	//Spatial pooler
	PotentialRadius            int // -1 connects every column to the whole input
	PotentialPct               float64
	GlobalInhibition           bool
	NumActiveColumnsPerInhArea float64
	LocalAreaDensity           float64
	StimulusThreshold          float64
	SynPermInactiveDec         float64
	SynPermActiveInc           float64
	SynPermConnected           float64
	SynPermBelowStimulusInc    float64
	SynPermTrimThreshold       float64
	SynPermMin                 float64
	SynPermMax                 float64
	InitialSynapseConnsPct     float64
	MinPctOverlapDutyCycles    float64
	MinPctActiveDutyCycles     float64
	DutyCyclePeriod            int
	MaxBoost                   float64
	// Learning iterations between inhibition radius and min duty cycle updates.
	UpdatePeriod int
	WrapAround   bool
	// Parallel overlap/inhibition workers, 1 runs everything on the caller.
	NumWorkers int

	//Temporal memory
	ActivationThreshold       int
	MinThreshold              int
	MaxNewSynapseCount        int
	MaxSynapsesPerSegment     int
	MaxSegmentsPerCell        int
	InitialPermanence         float64
	ConnectedPermanence       float64
	PermanenceIncrement       float64
	PermanenceDecrement       float64
	PredictedSegmentDecrement float64

	RandomGenSeed int64
}

//Returns default configuration for the given input and column topology
func NewHtmConfig(inputDimensions, columnDimensions []int) *HtmConfig {
	c := &HtmConfig{
		InputDimensions:  append([]int(nil), inputDimensions...),
		ColumnDimensions: append([]int(nil), columnDimensions...),
		CellsPerColumn:   32,

		PotentialRadius:         15,
		PotentialPct:            0.75,
		GlobalInhibition:        true,
		LocalAreaDensity:        -1,
		StimulusThreshold:       5,
		SynPermInactiveDec:      0.008,
		SynPermActiveInc:        0.05,
		SynPermConnected:        0.10,
		SynPermBelowStimulusInc: 0.01,
		SynPermTrimThreshold:    0.05,
		SynPermMin:              0,
		SynPermMax:              1,
		InitialSynapseConnsPct:  0.5,
		MinPctOverlapDutyCycles: 0.001,
		MinPctActiveDutyCycles:  0.001,
		DutyCyclePeriod:         1000,
		MaxBoost:                10,
		UpdatePeriod:            50,
		WrapAround:              true,
		NumWorkers:              1,

		ActivationThreshold:       10,
		MinThreshold:              9,
		MaxNewSynapseCount:        20,
		MaxSynapsesPerSegment:     225,
		MaxSegmentsPerCell:        225,
		InitialPermanence:         0.21,
		ConnectedPermanence:       0.5,
		PermanenceIncrement:       0.10,
		PermanenceDecrement:       0.10,
		PredictedSegmentDecrement: 0.1,

		RandomGenSeed: 42,
	}
	c.NumActiveColumnsPerInhArea = 0.02 * float64(c.NumColumns())
	return c
}

//Decodes a toml file over the defaults of the topology it names
func LoadConfig(path string) (*HtmConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var dims struct {
		InputDimensions  []int
		ColumnDimensions []int
	}
	if _, err := toml.Decode(string(raw), &dims); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrConfiguration, path, err)
	}

	c := NewHtmConfig(dims.InputDimensions, dims.ColumnDimensions)
	if _, err := toml.Decode(string(raw), c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrConfiguration, path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

//Total number of input bits
func (c *HtmConfig) NumInputs() int {
	return utils.ProdInt(c.InputDimensions)
}

//Total number of columns
func (c *HtmConfig) NumColumns() int {
	return utils.ProdInt(c.ColumnDimensions)
}

//Total number of cells
func (c *HtmConfig) NumCells() int {
	return c.NumColumns() * c.CellsPerColumn
}

func checkDims(field string, dims []int) error {
	if len(dims) == 0 {
		return configError(field, "must not be empty")
	}
	for i, d := range dims {
		if d <= 0 {
			return configError(field, "dimension %d is %d, must be positive", i, d)
		}
	}
	return nil
}

func checkUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return configError(field, "is %v, must be within [0,1]", v)
	}
	return nil
}

// Validate reports the first inconsistent field as an ErrConfiguration.
func (c *HtmConfig) Validate() error {
	if err := checkDims("InputDimensions", c.InputDimensions); err != nil {
		return err
	}
	if err := checkDims("ColumnDimensions", c.ColumnDimensions); err != nil {
		return err
	}
	if c.CellsPerColumn < 1 {
		return configError("CellsPerColumn", "is %d, must be at least 1", c.CellsPerColumn)
	}

	units := []struct {
		name string
		v    float64
	}{
		{"PotentialPct", c.PotentialPct},
		{"SynPermInactiveDec", c.SynPermInactiveDec},
		{"SynPermActiveInc", c.SynPermActiveInc},
		{"SynPermConnected", c.SynPermConnected},
		{"SynPermBelowStimulusInc", c.SynPermBelowStimulusInc},
		{"SynPermTrimThreshold", c.SynPermTrimThreshold},
		{"SynPermMin", c.SynPermMin},
		{"SynPermMax", c.SynPermMax},
		{"InitialSynapseConnsPct", c.InitialSynapseConnsPct},
		{"MinPctOverlapDutyCycles", c.MinPctOverlapDutyCycles},
		{"MinPctActiveDutyCycles", c.MinPctActiveDutyCycles},
		{"InitialPermanence", c.InitialPermanence},
		{"ConnectedPermanence", c.ConnectedPermanence},
		{"PermanenceIncrement", c.PermanenceIncrement},
		{"PermanenceDecrement", c.PermanenceDecrement},
		{"PredictedSegmentDecrement", c.PredictedSegmentDecrement},
	}
	for _, u := range units {
		if err := checkUnit(u.name, u.v); err != nil {
			return err
		}
	}
	if c.SynPermMin > c.SynPermMax {
		return configError("SynPermMin", "%v exceeds SynPermMax %v", c.SynPermMin, c.SynPermMax)
	}
	if c.SynPermConnected > c.SynPermMax {
		return configError("SynPermConnected", "%v exceeds SynPermMax %v", c.SynPermConnected, c.SynPermMax)
	}

	if c.PotentialRadius < -1 {
		return configError("PotentialRadius", "is %d, must be -1 or non negative", c.PotentialRadius)
	}
	if c.NumActiveColumnsPerInhArea <= 0 && (c.LocalAreaDensity <= 0 || c.LocalAreaDensity > 0.5) {
		return configError("NumActiveColumnsPerInhArea", "must be positive unless LocalAreaDensity is within (0,0.5]")
	}
	if c.StimulusThreshold < 0 {
		return configError("StimulusThreshold", "is %v, must not be negative", c.StimulusThreshold)
	}
	if c.StimulusThreshold > 0 && c.SynPermBelowStimulusInc <= 0 {
		return configError("SynPermBelowStimulusInc", "must be positive when StimulusThreshold is set")
	}
	if c.DutyCyclePeriod < 1 {
		return configError("DutyCyclePeriod", "is %d, must be at least 1", c.DutyCyclePeriod)
	}
	if c.UpdatePeriod < 1 {
		return configError("UpdatePeriod", "is %d, must be at least 1", c.UpdatePeriod)
	}
	if c.MaxBoost < 0 {
		return configError("MaxBoost", "is %v, must not be negative", c.MaxBoost)
	}
	if c.NumWorkers < 0 {
		return configError("NumWorkers", "is %d, must not be negative", c.NumWorkers)
	}

	if c.ActivationThreshold < 0 || c.MinThreshold < 0 {
		return configError("ActivationThreshold", "thresholds must not be negative")
	}
	if c.MinThreshold > c.ActivationThreshold {
		return configError("MinThreshold", "%d exceeds ActivationThreshold %d", c.MinThreshold, c.ActivationThreshold)
	}
	if c.MaxNewSynapseCount < 0 {
		return configError("MaxNewSynapseCount", "is %d, must not be negative", c.MaxNewSynapseCount)
	}
	if c.MaxSynapsesPerSegment < 1 {
		return configError("MaxSynapsesPerSegment", "is %d, must be at least 1", c.MaxSynapsesPerSegment)
	}
	if c.MaxSegmentsPerCell < 1 {
		return configError("MaxSegmentsPerCell", "is %d, must be at least 1", c.MaxSegmentsPerCell)
	}
	return nil
}

func (c *HtmConfig) clone() *HtmConfig {
	cp := *c
	cp.InputDimensions = append([]int(nil), c.InputDimensions...)
	cp.ColumnDimensions = append([]int(nil), c.ColumnDimensions...)
	return &cp
}
