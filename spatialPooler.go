package htm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cznic/mathutil"
	"github.com/gonum/floats"
	"github.com/htm-community/htmcore/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

//Selects winning columns from raw and boosted overlaps
type InhibitionFunc func(sp *SpatialPooler, overlaps []int, boostedOverlaps []float64) ([]int, error)

//Strengthens columns whose overlap duty cycle fell below the minimum
type BumpUpFunc func(sp *SpatialPooler) error

/*
 The spatial pooler turns binary input vectors into sparse sets of active
columns. Every column has a potential pool of input bits; overlap is the
number of connected synapses on active bits, boosted by how rarely the
column has been active. Columns then compete through global or local
inhibition and the winners learn.

All state lives in Connections, the pooler itself only holds strategies,
the optional homeostatic controller and the worker pool.
*/
type SpatialPooler struct {
	conn   *Connections
	hpc    *HomeostaticPlasticityController
	logger *slog.Logger
	pool   *workerPool

	inhibit InhibitionFunc
	bumpUp  BumpUpFunc

	nbhdRadius int
	nbhds      [][]int
}

type SpatialPoolerOption func(*SpatialPooler)

//Replaces the inhibition step
func WithInhibition(fn InhibitionFunc) SpatialPoolerOption {
	return func(sp *SpatialPooler) {
		sp.inhibit = fn
	}
}

//Replaces the weak column bump up step
func WithBumpUp(fn BumpUpFunc) SpatialPoolerOption {
	return func(sp *SpatialPooler) {
		sp.bumpUp = fn
	}
}

//Attaches a controller that disables boosting once output is stable
func WithHomeostaticController(hpc *HomeostaticPlasticityController) SpatialPoolerOption {
	return func(sp *SpatialPooler) {
		sp.hpc = hpc
	}
}

func NewSpatialPooler(opts ...SpatialPoolerOption) *SpatialPooler {
	sp := &SpatialPooler{
		inhibit:    (*SpatialPooler).InhibitColumns,
		bumpUp:     (*SpatialPooler).BumpUpWeakColumns,
		nbhdRadius: -1,
	}
	for _, opt := range opts {
		opt(sp)
	}
	return sp
}

/*
 Builds the receptive field of every column: a potential pool sampled
from the input neighborhood of the column center and initial permanences
around the connected threshold. Every column is raised to the stimulus
threshold.
*/
func (sp *SpatialPooler) Init(conn *Connections) error {
	sp.conn = conn
	sp.logger = conn.componentLogger("spatial_pooler")
	sp.nbhdRadius = -1
	cfg := conn.cfg

	for i := 0; i < conn.NumColumns(); i++ {
		col, err := conn.store.Get(i)
		if err != nil {
			return fmt.Errorf("init column %d: %w", i, err)
		}
		potential := sp.mapPotential(i)
		perms := sp.initPermanence(len(potential))
		if err := col.Proximal.setPermanences(cfg, potential, perms); err != nil {
			return fmt.Errorf("init column %d: %w", i, err)
		}
		if err := conn.store.Set(i, col); err != nil {
			return fmt.Errorf("init column %d: %w", i, err)
		}
	}

	if err := sp.updateInhibitionRadius(); err != nil {
		return err
	}

	sp.pool.close()
	sp.pool = nil
	if cfg.NumWorkers > 1 {
		sp.pool = newWorkerPool(cfg.NumWorkers)
	}

	sp.logger.Info("spatial pooler initialized",
		slog.Int("columns", conn.NumColumns()),
		slog.Int("inputs", conn.NumInputs()),
		slog.Int("inhibition_radius", conn.inhibitionRadius),
		slog.Int("workers", mathutil.Max(1, cfg.NumWorkers)))
	return nil
}

//Attaches the pooler to an already initialized Connections, e.g. one loaded from a checkpoint
func (sp *SpatialPooler) Attach(conn *Connections) {
	sp.conn = conn
	sp.logger = conn.componentLogger("spatial_pooler")
	sp.nbhdRadius = -1
	sp.pool.close()
	sp.pool = nil
	if conn.cfg.NumWorkers > 1 {
		sp.pool = newWorkerPool(conn.cfg.NumWorkers)
	}
}

//Stops the worker pool
func (sp *SpatialPooler) Close() {
	sp.pool.close()
	sp.pool = nil
}

func (sp *SpatialPooler) Connections() *Connections {
	return sp.conn
}

func (sp *SpatialPooler) HomeostaticController() *HomeostaticPlasticityController {
	return sp.hpc
}

//Dense binary input, returns sorted active column indices
func (sp *SpatialPooler) Compute(inputVector []int, learn bool) ([]int, error) {
	return sp.ComputeContext(context.Background(), inputVector, learn)
}

//Input given as on bit indices
func (sp *SpatialPooler) ComputeSparse(activeBits []int, learn bool) ([]int, error) {
	dense := make([]int, sp.conn.NumInputs())
	for _, b := range activeBits {
		if b < 0 || b >= len(dense) {
			return nil, fmt.Errorf("%w: input bit %d outside [0,%d)", ErrInvalidInput, b, len(dense))
		}
		dense[b] = 1
	}
	return sp.Compute(dense, learn)
}

func (sp *SpatialPooler) ComputeContext(ctx context.Context, inputVector []int, learn bool) (active []int, err error) {
	_, span := tracer.Start(ctx, "SpatialPooler.Compute", trace.WithAttributes(
		attribute.Bool("learn", learn),
		attribute.Int("iteration", sp.conn.iterationNum),
	))
	defer func() {
		recordSpanError(span, err)
		span.SetAttributes(attribute.Int("active_columns", len(active)))
		span.End()
	}()

	conn := sp.conn
	if len(inputVector) != conn.NumInputs() {
		return nil, fmt.Errorf("%w: input length %d, expected %d", ErrInvalidInput, len(inputVector), conn.NumInputs())
	}

	sp.updateBookeepingVars(learn)

	overlaps, err := sp.calculateOverlap(inputVector)
	if err != nil {
		return nil, err
	}

	boosted := make([]float64, len(overlaps))
	for i, o := range overlaps {
		boosted[i] = float64(o)
	}
	// boosting only matters while learning and until the output is stable
	if learn && !sp.boostingDisabled() {
		floats.Mul(boosted, conn.boostFactors)
	}

	active, err = sp.inhibit(sp, overlaps, boosted)
	if err != nil {
		return nil, err
	}
	sort.Ints(active)

	if learn {
		if err := sp.adaptSynapses(inputVector, active); err != nil {
			return nil, err
		}
		sp.updateDutyCycles(overlaps, active)
		if err := sp.bumpUp(sp); err != nil {
			return nil, err
		}
		if err := sp.updateBoostFactors(); err != nil {
			return nil, err
		}
		if sp.isUpdateRound() {
			if err := sp.updateInhibitionRadius(); err != nil {
				return nil, err
			}
			if err := sp.updateMinDutyCycles(); err != nil {
				return nil, err
			}
			sp.logger.Debug("update round",
				slog.Int("iteration", conn.iterationNum),
				slog.Int("inhibition_radius", conn.inhibitionRadius))
		}
	}

	if sp.hpc != nil {
		sp.hpc.Compute(inputVector, active)
	}
	return active, nil
}

func (sp *SpatialPooler) boostingDisabled() bool {
	return sp.hpc != nil && sp.hpc.IsStable()
}

func (sp *SpatialPooler) updateBookeepingVars(learn bool) {
	sp.conn.iterationNum++
	if learn {
		sp.conn.iterationLearnNum++
	}
}

func (sp *SpatialPooler) isUpdateRound() bool {
	return sp.conn.iterationNum%sp.conn.cfg.UpdatePeriod == 0
}

/*
 Overlap of every column with the input, counting connected synapses on
on bits only. Column ranges are split across the worker pool.
*/
func (sp *SpatialPooler) calculateOverlap(inputVector []int) ([]int, error) {
	conn := sp.conn
	threshold := conn.cfg.SynPermConnected
	overlaps := make([]int, conn.NumColumns())

	err := sp.pool.run(len(overlaps), func(start, end int) error {
		for i := start; i < end; i++ {
			col, err := conn.store.Get(i)
			if err != nil {
				return fmt.Errorf("overlap column %d: %w", i, err)
			}
			overlaps[i] = col.Proximal.Overlap(inputVector, threshold)
		}
		return nil
	})
	return overlaps, err
}

/*
 Winning columns move permanences towards the input: synapses on active
bits gain SynPermActiveInc, the rest of the pool loses SynPermInactiveDec.
*/
func (sp *SpatialPooler) adaptSynapses(inputVector []int, activeColumns []int) error {
	conn := sp.conn
	cfg := conn.cfg
	for _, c := range activeColumns {
		col, err := conn.store.Get(c)
		if err != nil {
			return fmt.Errorf("adapt column %d: %w", c, err)
		}
		pd := &col.Proximal
		for i, idx := range pd.InputIndices {
			if inputVector[idx] != 0 {
				pd.Permanences[i] += cfg.SynPermActiveInc
			} else {
				pd.Permanences[i] -= cfg.SynPermInactiveDec
			}
		}
		if err := pd.normalize(cfg, true); err != nil {
			return err
		}
		if err := conn.store.Set(c, col); err != nil {
			return fmt.Errorf("adapt column %d: %w", c, err)
		}
	}
	return nil
}

/*
 Maps a column to the input bit at the center of its receptive field,
scaling each coordinate by the input/column size ratio.
*/
func (sp *SpatialPooler) mapColumn(column int) int {
	conn := sp.conn
	colDims := conn.cfg.ColumnDimensions
	inDims := conn.cfg.InputDimensions
	if len(colDims) != len(inDims) {
		// differing dimensionality falls back to flat index scaling
		ratio := float64(conn.NumInputs()) / float64(conn.NumColumns())
		return mathutil.Min(int(float64(column)*ratio+0.5*ratio), conn.NumInputs()-1)
	}

	colCoords := conn.columnTopology.Coordinates(column)
	inputCoords := make([]int, len(colCoords))
	for i, c := range colCoords {
		colDim := float64(colDims[i])
		inDim := float64(inDims[i])
		v := int(math.Floor(float64(c)/colDim*inDim + 0.5*inDim/colDim))
		inputCoords[i] = mathutil.Min(v, inDims[i]-1)
	}
	return conn.inputTopology.Index(inputCoords)
}

/*
 Returns the sorted potential pool of a column: PotentialPct of the input
neighborhood around its center, sampled with the seeded random source.
*/
func (sp *SpatialPooler) mapPotential(column int) []int {
	conn := sp.conn
	cfg := conn.cfg
	radius := cfg.PotentialRadius
	if radius < 0 {
		radius = 0
		for _, d := range cfg.InputDimensions {
			radius = mathutil.Max(radius, d)
		}
	}

	center := sp.mapColumn(column)
	neighborhood := conn.inputTopology.Neighborhood(center, radius, cfg.WrapAround)
	numPotential := int(float64(len(neighborhood))*cfg.PotentialPct + 0.5)
	numPotential = mathutil.Min(numPotential, len(neighborhood))

	// partial Fisher-Yates
	pool := append([]int(nil), neighborhood...)
	for i := 0; i < numPotential; i++ {
		j := i + conn.random.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	pool = pool[:numPotential]
	sort.Ints(pool)
	return pool
}

/*
 Initial permanences: InitialSynapseConnsPct of the pool starts just above
the connected threshold, the rest below it. Values are truncated to five
decimals.
*/
func (sp *SpatialPooler) initPermanence(n int) []float64 {
	cfg := sp.conn.cfg
	rnd := sp.conn.random
	perms := make([]float64, n)
	for i := range perms {
		var p float64
		if rnd.Float64() <= cfg.InitialSynapseConnsPct {
			p = cfg.SynPermConnected + rnd.Float64()*cfg.SynPermActiveInc/4
		} else {
			p = cfg.SynPermConnected * rnd.Float64()
		}
		perms[i] = utils.TruncatePrec(p, 5)
	}
	return perms
}

/*
 Removes columns that have never been active from a set of winners. Used
by callers that want to ignore columns which learned nothing yet.
*/
func (sp *SpatialPooler) StripUnlearnedColumns(activeColumns []int) []int {
	result := make([]int, 0, len(activeColumns))
	for _, c := range activeColumns {
		if sp.conn.activeDutyCycles[c] > 0 {
			result = append(result, c)
		}
	}
	return result
}
