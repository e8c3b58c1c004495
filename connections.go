package htm

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/c2h5oh/datasize"
	"github.com/skelterjohn/go.matrix"
)

// Tolerance used for permanence comparisons and synapse destruction.
const EPSILON = 0.00001

/*
 Connections is the aggregate root both algorithms operate on. It holds the
configuration, the column store, the distal cell/segment/synapse arenas,
duty cycle and boost state of the spatial pooler and the per cycle sets of
the temporal memory. A Connections instance must not be shared by two
concurrent Compute calls.
*/
type Connections struct {
	cfg            *HtmConfig
	inputTopology  *Topology
	columnTopology *Topology
	store          ColumnStore

	//distal arenas
	cells              []Cell
	segments           []Segment
	synapses           []Synapse
	freeSegments       []int
	freeSynapses       []int
	numSegments        int
	numSynapses        int
	nextSegmentOrdinal int
	nextSynapseOrdinal int
	tmIteration        int

	//spatial pooler state
	overlapDutyCycles    []float64
	activeDutyCycles     []float64
	minOverlapDutyCycles []float64
	minActiveDutyCycles  []float64
	boostFactors         []float64
	inhibitionRadius     int
	iterationNum         int
	iterationLearnNum    int

	//temporal memory state, overwritten every cycle
	activeCells        []int
	winnerCells        []int
	activeSegments     []int
	matchingSegments   []int
	numActiveConnected []int
	numActivePotential []int

	source *seededSource
	random *rand.Rand
	logger *slog.Logger
}

/*
 Validates cfg, copies it and allocates the column and cell population.
A nil store selects a MemoryColumnStore.
*/
func NewConnections(cfg *HtmConfig, store ColumnStore) (*Connections, error) {
	if cfg == nil {
		return nil, configError("HtmConfig", "is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryColumnStore()
	}

	c := newConnections(cfg.clone(), store)
	for i := 0; i < c.cfg.NumColumns(); i++ {
		if err := store.Set(i, NewColumn(i)); err != nil {
			return nil, fmt.Errorf("store column %d: %w", i, err)
		}
	}
	c.allocateCells()
	c.componentLogger("connections").Debug("connections created",
		slog.Int("columns", c.cfg.NumColumns()),
		slog.Int("cells", len(c.cells)),
		slog.Int("inputs", c.cfg.NumInputs()))
	return c, nil
}

func newConnections(cfg *HtmConfig, store ColumnStore) *Connections {
	c := &Connections{
		cfg:            cfg,
		store:          store,
		inputTopology:  NewTopology(cfg.InputDimensions, cfg.IsColumnMajor),
		columnTopology: NewTopology(cfg.ColumnDimensions, cfg.IsColumnMajor),
		logger:         slog.Default(),
	}
	c.source = newSeededSource(cfg.RandomGenSeed)
	c.random = rand.New(c.source)

	numColumns := cfg.NumColumns()
	c.overlapDutyCycles = make([]float64, numColumns)
	c.activeDutyCycles = make([]float64, numColumns)
	c.minOverlapDutyCycles = make([]float64, numColumns)
	c.minActiveDutyCycles = make([]float64, numColumns)
	c.boostFactors = make([]float64, numColumns)
	for i := range c.boostFactors {
		c.boostFactors[i] = 1
	}
	return c
}

func (c *Connections) allocateCells() {
	c.cells = make([]Cell, c.cfg.NumCells())
	for i := range c.cells {
		c.cells[i] = Cell{Index: i, Column: i / c.cfg.CellsPerColumn}
	}
}

//Returns a copy of the configuration
func (c *Connections) Config() *HtmConfig {
	return c.cfg.clone()
}

//Replaces the logger used by every algorithm attached to c
func (c *Connections) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

func (c *Connections) Logger() *slog.Logger {
	return c.logger
}

func (c *Connections) componentLogger(name string) *slog.Logger {
	return c.logger.With(slog.String("component", name))
}

func (c *Connections) Store() ColumnStore {
	return c.store
}

func (c *Connections) NumColumns() int {
	return c.columnTopology.Size()
}

func (c *Connections) NumInputs() int {
	return c.inputTopology.Size()
}

func (c *Connections) NumCells() int {
	return len(c.cells)
}

//Column by flat index
func (c *Connections) Column(index int) (*Column, error) {
	if !c.columnTopology.validIndex(index) {
		return nil, indexError("column", index, c.NumColumns())
	}
	return c.store.Get(index)
}

func (c *Connections) ColumnCoordinates(index int) ([]int, error) {
	if !c.columnTopology.validIndex(index) {
		return nil, indexError("column", index, c.NumColumns())
	}
	return c.columnTopology.Coordinates(index), nil
}

func (c *Connections) ColumnIndex(coords []int) (int, error) {
	if len(coords) != len(c.cfg.ColumnDimensions) {
		return 0, fmt.Errorf("column coordinates %v: %w", coords, ErrIndex)
	}
	for i, v := range coords {
		if v < 0 || v >= c.cfg.ColumnDimensions[i] {
			return 0, indexError("column coordinate", v, c.cfg.ColumnDimensions[i])
		}
	}
	return c.columnTopology.Index(coords), nil
}

//Columns within radius of center, wrapped according to the config
func (c *Connections) ColumnNeighborhood(center, radius int) ([]int, error) {
	if !c.columnTopology.validIndex(center) {
		return nil, indexError("column", center, c.NumColumns())
	}
	return c.columnTopology.Neighborhood(center, radius, c.cfg.WrapAround), nil
}

//Input bits within radius of center, wrapped according to the config
func (c *Connections) InputNeighborhood(center, radius int) ([]int, error) {
	if !c.inputTopology.validIndex(center) {
		return nil, indexError("input", center, c.NumInputs())
	}
	return c.inputTopology.Neighborhood(center, radius, c.cfg.WrapAround), nil
}

//Global cell indices of a column
func (c *Connections) CellsForColumn(column int) ([]int, error) {
	if !c.columnTopology.validIndex(column) {
		return nil, indexError("column", column, c.NumColumns())
	}
	cells := make([]int, c.cfg.CellsPerColumn)
	start := column * c.cfg.CellsPerColumn
	for i := range cells {
		cells[i] = start + i
	}
	return cells, nil
}

func (c *Connections) ColumnForCell(cell int) (int, error) {
	if cell < 0 || cell >= len(c.cells) {
		return 0, indexError("cell", cell, len(c.cells))
	}
	return c.cells[cell].Column, nil
}

func (c *Connections) InhibitionRadius() int {
	return c.inhibitionRadius
}

func (c *Connections) IterationNum() int {
	return c.iterationNum
}

func (c *Connections) IterationLearnNum() int {
	return c.iterationLearnNum
}

func (c *Connections) BoostFactors() []float64 {
	return append([]float64(nil), c.boostFactors...)
}

func (c *Connections) ActiveDutyCycles() []float64 {
	return append([]float64(nil), c.activeDutyCycles...)
}

func (c *Connections) OverlapDutyCycles() []float64 {
	return append([]float64(nil), c.overlapDutyCycles...)
}

func (c *Connections) MinActiveDutyCycles() []float64 {
	return append([]float64(nil), c.minActiveDutyCycles...)
}

func (c *Connections) MinOverlapDutyCycles() []float64 {
	return append([]float64(nil), c.minOverlapDutyCycles...)
}

/*
 Returns a columns x inputs matrix of proximal permanences. Inputs outside
a column's potential pool are zero.
*/
func (c *Connections) PermanenceMatrix() (*matrix.SparseMatrix, error) {
	cols := c.NumInputs()
	elements := make(map[int]float64)
	err := c.store.ForEach(func(col *Column) error {
		for i, idx := range col.Proximal.InputIndices {
			if p := col.Proximal.Permanences[i]; p > 0 {
				elements[col.Index*cols+idx] = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matrix.MakeSparseMatrix(elements, c.NumColumns(), cols), nil
}

//Size summary of the graph
type Stats struct {
	Columns          int
	Cells            int
	Segments         int
	Synapses         int
	FreeSegments     int
	FreeSynapses     int
	ProximalSynapses int
	MemoryEstimate   datasize.ByteSize
}

func (s Stats) String() string {
	return fmt.Sprintf("columns=%d cells=%d segments=%d synapses=%d proximal=%d free=%d/%d memory=%s",
		s.Columns, s.Cells, s.Segments, s.Synapses, s.ProximalSynapses,
		s.FreeSegments, s.FreeSynapses, s.MemoryEstimate.HumanReadable())
}

func (c *Connections) Stats() Stats {
	s := Stats{
		Columns:      c.NumColumns(),
		Cells:        len(c.cells),
		Segments:     c.numSegments,
		Synapses:     c.numSynapses,
		FreeSegments: len(c.freeSegments),
		FreeSynapses: len(c.freeSynapses),
	}
	_ = c.store.ForEach(func(col *Column) error {
		s.ProximalSynapses += col.Proximal.Size()
		return nil
	})

	// rough per entry footprint of the arenas
	bytes := 48*len(c.cells) + 64*len(c.segments) + 48*len(c.synapses) +
		16*s.ProximalSynapses + 40*s.Columns + 8*s.Synapses
	s.MemoryEstimate = datasize.ByteSize(bytes)
	return s
}
