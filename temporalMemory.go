package htm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cznic/mathutil"
	"github.com/htm-community/htmcore/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

/*
 Temporal memory learns sequences of active column sets. Cells of an
active column that were predicted by an active distal segment become
active, otherwise the whole column bursts. Segments grow synapses to the
winner cells of the previous cycle so the same transition is predicted
next time.
*/
type TemporalMemory struct {
	conn   *Connections
	logger *slog.Logger
}

func NewTemporalMemory() *TemporalMemory {
	return &TemporalMemory{}
}

//Binds the temporal memory to conn and clears sequence state
func (tm *TemporalMemory) Init(conn *Connections) error {
	if conn == nil {
		return configError("Connections", "is nil")
	}
	tm.conn = conn
	tm.logger = conn.componentLogger("temporal_memory")
	if len(conn.cells) != conn.cfg.NumCells() {
		conn.allocateCells()
	}
	tm.Reset()
	return nil
}

//Binds to conn keeping its sequence state, e.g. one loaded from a checkpoint
func (tm *TemporalMemory) Attach(conn *Connections) {
	tm.conn = conn
	tm.logger = conn.componentLogger("temporal_memory")
}

func (tm *TemporalMemory) Connections() *Connections {
	return tm.conn
}

//Clears active, winner and predictive state, e.g. between sequences
func (tm *TemporalMemory) Reset() {
	c := tm.conn
	if c == nil {
		return
	}
	c.activeCells = nil
	c.winnerCells = nil
	c.activeSegments = nil
	c.matchingSegments = nil
	for i := range c.numActiveConnected {
		c.numActiveConnected[i] = 0
		c.numActivePotential[i] = 0
	}
}

func (tm *TemporalMemory) ActiveCells() []int {
	return append([]int(nil), tm.conn.activeCells...)
}

func (tm *TemporalMemory) WinnerCells() []int {
	return append([]int(nil), tm.conn.winnerCells...)
}

func (tm *TemporalMemory) ActiveSegments() []int {
	return append([]int(nil), tm.conn.activeSegments...)
}

func (tm *TemporalMemory) MatchingSegments() []int {
	return append([]int(nil), tm.conn.matchingSegments...)
}

//Cells owning an active segment
func (tm *TemporalMemory) PredictiveCells() []int {
	return tm.cellsForSegments(tm.conn.activeSegments)
}

func (tm *TemporalMemory) cellsForSegments(segments []int) []int {
	result := make([]int, 0, len(segments))
	for _, seg := range segments {
		cell := tm.conn.segments[seg].Cell
		if len(result) == 0 || result[len(result)-1] != cell {
			result = append(result, cell)
		}
	}
	return result
}

func (tm *TemporalMemory) Compute(activeColumns []int, learn bool) (*ComputeCycle, error) {
	return tm.ComputeContext(context.Background(), activeColumns, learn)
}

/*
 Runs one cycle: activates cells of the given columns using the
predictions of the previous cycle, learns when asked to, then computes the
segments active for the next cycle.
*/
func (tm *TemporalMemory) ComputeContext(ctx context.Context, activeColumns []int, learn bool) (cycle *ComputeCycle, err error) {
	_, span := tracer.Start(ctx, "TemporalMemory.Compute", trace.WithAttributes(
		attribute.Bool("learn", learn),
		attribute.Int("active_columns", len(activeColumns)),
	))
	defer func() {
		recordSpanError(span, err)
		if cycle != nil {
			span.SetAttributes(
				attribute.Int("active_cells", len(cycle.ActiveCells)),
				attribute.Int("active_segments", len(cycle.ActiveSegments)))
		}
		span.End()
	}()

	conn := tm.conn
	columns := utils.SortUniqueInt(append([]int(nil), activeColumns...))
	for _, c := range columns {
		if c < 0 || c >= conn.NumColumns() {
			return nil, fmt.Errorf("%w: column %d outside [0,%d)", ErrInvalidInput, c, conn.NumColumns())
		}
	}

	bursting, err := tm.activateCells(columns, learn)
	if err != nil {
		return nil, err
	}
	tm.activateDendrites(learn)
	span.SetAttributes(attribute.Int("bursting_columns", bursting))
	if bursting > 0 {
		tm.logger.Debug("columns bursting",
			slog.Int("bursting", bursting),
			slog.Int("active_columns", len(columns)),
			slog.Int("segments", conn.numSegments))
	}

	cycle = &ComputeCycle{
		ActiveColumns:    columns,
		ActiveCells:      tm.ActiveCells(),
		WinnerCells:      tm.WinnerCells(),
		PredictiveCells:  tm.PredictiveCells(),
		ActiveSegments:   tm.ActiveSegments(),
		MatchingSegments: tm.MatchingSegments(),
		numColumns:       conn.NumColumns(),
		cellsPerColumn:   conn.cfg.CellsPerColumn,
	}
	return cycle, nil
}

/*
 Computes this cycle's active and winner cells and applies learning.
Returns the number of bursting columns.
*/
func (tm *TemporalMemory) activateCells(columns []int, learn bool) (int, error) {
	conn := tm.conn
	cfg := conn.cfg

	prevActive := make([]bool, len(conn.cells))
	for _, cell := range conn.activeCells {
		prevActive[cell] = true
	}
	prevWinner := conn.winnerCells

	activeByColumn := tm.groupByColumn(conn.activeSegments)
	matchingByColumn := tm.groupByColumn(conn.matchingSegments)

	var activeCells, winnerCells []int
	bursting := 0
	isActive := make(map[int]bool, len(columns))

	for _, col := range columns {
		isActive[col] = true
		var err error
		if segs := activeByColumn[col]; len(segs) > 0 {
			activeCells, winnerCells, err = tm.activatePredictedColumn(segs, prevActive, prevWinner, learn, activeCells, winnerCells)
		} else {
			bursting++
			activeCells, winnerCells, err = tm.burstColumn(col, matchingByColumn[col], prevActive, prevWinner, learn, activeCells, winnerCells)
		}
		if err != nil {
			return bursting, err
		}
	}

	if learn && cfg.PredictedSegmentDecrement > 0 {
		punished := make([]int, 0, len(matchingByColumn))
		for col := range matchingByColumn {
			if !isActive[col] {
				punished = append(punished, col)
			}
		}
		sort.Ints(punished)
		for _, col := range punished {
			for _, seg := range matchingByColumn[col] {
				if err := tm.adaptSegment(seg, prevActive, -cfg.PredictedSegmentDecrement, 0); err != nil {
					return bursting, err
				}
			}
		}
	}

	conn.activeCells = utils.SortUniqueInt(activeCells)
	conn.winnerCells = utils.SortUniqueInt(winnerCells)
	return bursting, nil
}

//Splits sorted segments into per column groups
func (tm *TemporalMemory) groupByColumn(segments []int) map[int][]int {
	groups := make(map[int][]int)
	for _, seg := range segments {
		col := tm.conn.columnForSegment(seg)
		groups[col] = append(groups[col], seg)
	}
	return groups
}

/*
 Cells owning an active segment become active and winners. When learning
those segments are reinforced and grow towards the previous winners.
*/
func (tm *TemporalMemory) activatePredictedColumn(segments []int, prevActive []bool, prevWinner []int, learn bool, activeCells, winnerCells []int) ([]int, []int, error) {
	conn := tm.conn
	cfg := conn.cfg
	for _, seg := range segments {
		cell := conn.segments[seg].Cell
		if n := len(activeCells); n == 0 || activeCells[n-1] != cell {
			activeCells = append(activeCells, cell)
			winnerCells = append(winnerCells, cell)
		}

		if !learn {
			continue
		}
		if err := tm.adaptSegment(seg, prevActive, cfg.PermanenceIncrement, cfg.PermanenceDecrement); err != nil {
			return activeCells, winnerCells, err
		}
		nGrow := cfg.MaxNewSynapseCount - conn.numActivePotential[seg]
		if nGrow > 0 && conn.segments[seg].Alive {
			if err := tm.growSynapses(seg, prevWinner, cfg.InitialPermanence, nGrow); err != nil {
				return activeCells, winnerCells, err
			}
		}
	}
	return activeCells, winnerCells, nil
}

/*
 All cells of the column become active. The winner is the owner of the
best matching segment, or the least used cell, on which a new segment is
grown when learning.
*/
func (tm *TemporalMemory) burstColumn(column int, matching []int, prevActive []bool, prevWinner []int, learn bool, activeCells, winnerCells []int) ([]int, []int, error) {
	conn := tm.conn
	cfg := conn.cfg
	cells, err := conn.CellsForColumn(column)
	if err != nil {
		return activeCells, winnerCells, err
	}
	activeCells = append(activeCells, cells...)

	if len(matching) > 0 {
		best := tm.bestMatchingSegment(matching)
		winnerCells = append(winnerCells, conn.segments[best].Cell)
		if learn {
			if err := tm.adaptSegment(best, prevActive, cfg.PermanenceIncrement, cfg.PermanenceDecrement); err != nil {
				return activeCells, winnerCells, err
			}
			nGrow := cfg.MaxNewSynapseCount - conn.numActivePotential[best]
			if nGrow > 0 && conn.segments[best].Alive {
				if err := tm.growSynapses(best, prevWinner, cfg.InitialPermanence, nGrow); err != nil {
					return activeCells, winnerCells, err
				}
			}
		}
		return activeCells, winnerCells, nil
	}

	winner := tm.leastUsedCell(cells)
	winnerCells = append(winnerCells, winner)
	if learn {
		nGrow := mathutil.Min(cfg.MaxNewSynapseCount, len(prevWinner))
		if nGrow > 0 {
			seg, err := conn.CreateDistalSegment(winner)
			if err != nil {
				return activeCells, winnerCells, err
			}
			if err := tm.growSynapses(seg, prevWinner, cfg.InitialPermanence, nGrow); err != nil {
				return activeCells, winnerCells, err
			}
		}
	}
	return activeCells, winnerCells, nil
}

//Highest potential overlap, ties go to the lower segment ordinal
func (tm *TemporalMemory) bestMatchingSegment(segments []int) int {
	conn := tm.conn
	best := segments[0]
	for _, seg := range segments[1:] {
		n, b := conn.numActivePotential[seg], conn.numActivePotential[best]
		if n > b || (n == b && conn.segments[seg].Ordinal < conn.segments[best].Ordinal) {
			best = seg
		}
	}
	return best
}

//Cell with the fewest segments, ties go to the lower index
func (tm *TemporalMemory) leastUsedCell(cells []int) int {
	best := cells[0]
	for _, cell := range cells[1:] {
		if len(tm.conn.cells[cell].Segments) < len(tm.conn.cells[best].Segments) {
			best = cell
		}
	}
	return best
}

/*
 Synapses from previously active cells gain inc, the others lose dec.
Synapses falling to zero are destroyed, and with them an emptied segment.
*/
func (tm *TemporalMemory) adaptSegment(segment int, prevActive []bool, inc, dec float64) error {
	conn := tm.conn
	synapses := append([]int(nil), conn.segments[segment].Synapses...)
	for _, syn := range synapses {
		s := &conn.synapses[syn]
		p := s.Permanence
		if prevActive[s.SourceCell] {
			p += inc
		} else {
			p -= dec
		}
		p = clampPermanence(p)
		if p < EPSILON {
			if err := conn.DestroySynapse(syn); err != nil {
				return err
			}
			continue
		}
		s.Permanence = p
	}
	return nil
}

/*
 Grows up to n synapses from a seeded random sample of candidates the
segment is not yet connected to.
*/
func (tm *TemporalMemory) growSynapses(segment int, candidates []int, permanence float64, n int) error {
	conn := tm.conn
	existing := make(map[int]bool, len(conn.segments[segment].Synapses))
	for _, syn := range conn.segments[segment].Synapses {
		existing[conn.synapses[syn].SourceCell] = true
	}
	pool := make([]int, 0, len(candidates))
	for _, cell := range candidates {
		if !existing[cell] {
			pool = append(pool, cell)
		}
	}

	n = mathutil.Min(n, len(pool))
	for i := 0; i < n; i++ {
		j := i + conn.random.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	chosen := pool[:n]
	sort.Ints(chosen)

	for _, cell := range chosen {
		if _, err := conn.CreateSynapse(segment, cell, permanence); err != nil {
			return err
		}
	}
	return nil
}

/*
 Counts synapse activity from the new active cells and classifies
segments as active (connected count reaches ActivationThreshold) or
matching (potential count reaches MinThreshold).
*/
func (tm *TemporalMemory) activateDendrites(learn bool) {
	conn := tm.conn
	cfg := conn.cfg
	connected, potential := conn.ComputeActivity(conn.activeCells, cfg.ConnectedPermanence)

	var active, matching []int
	for seg := range conn.segments {
		if !conn.segments[seg].Alive {
			continue
		}
		if connected[seg] >= cfg.ActivationThreshold {
			active = append(active, seg)
		}
		if potential[seg] >= cfg.MinThreshold {
			matching = append(matching, seg)
		}
	}
	conn.sortSegments(active)
	conn.sortSegments(matching)

	conn.numActiveConnected = connected
	conn.numActivePotential = potential
	conn.activeSegments = active
	conn.matchingSegments = matching

	if learn {
		for _, seg := range active {
			conn.segments[seg].LastUsedIteration = conn.tmIteration
		}
		conn.tmIteration++
	}
}
