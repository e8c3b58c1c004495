package htm

import (
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/zstd"
)

const checkpointVersion = 1

type checkpoint struct {
	Version int
	Config  HtmConfig
	Columns []Column

	Cells              []Cell
	Segments           []Segment
	Synapses           []Synapse
	FreeSegments       []int
	FreeSynapses       []int
	NumSegments        int
	NumSynapses        int
	NextSegmentOrdinal int
	NextSynapseOrdinal int
	TMIteration        int

	OverlapDutyCycles    []float64
	ActiveDutyCycles     []float64
	MinOverlapDutyCycles []float64
	MinActiveDutyCycles  []float64
	BoostFactors         []float64
	InhibitionRadius     int
	IterationNum         int
	IterationLearnNum    int

	ActiveCells        []int
	WinnerCells        []int
	ActiveSegments     []int
	MatchingSegments   []int
	NumActiveConnected []int
	NumActivePotential []int

	Seed  int64
	Draws uint64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

/*
 Writes a zstd compressed gob checkpoint of the whole state: config,
columns, distal arenas, duty cycles, per cycle sets and the position of
the random source. A loaded checkpoint continues bit for bit.
*/
func (c *Connections) Save(w io.Writer) error {
	cp := checkpoint{
		Version:              checkpointVersion,
		Config:               *c.cfg.clone(),
		Cells:                c.cells,
		Segments:             c.segments,
		Synapses:             c.synapses,
		FreeSegments:         c.freeSegments,
		FreeSynapses:         c.freeSynapses,
		NumSegments:          c.numSegments,
		NumSynapses:          c.numSynapses,
		NextSegmentOrdinal:   c.nextSegmentOrdinal,
		NextSynapseOrdinal:   c.nextSynapseOrdinal,
		TMIteration:          c.tmIteration,
		OverlapDutyCycles:    c.overlapDutyCycles,
		ActiveDutyCycles:     c.activeDutyCycles,
		MinOverlapDutyCycles: c.minOverlapDutyCycles,
		MinActiveDutyCycles:  c.minActiveDutyCycles,
		BoostFactors:         c.boostFactors,
		InhibitionRadius:     c.inhibitionRadius,
		IterationNum:         c.iterationNum,
		IterationLearnNum:    c.iterationLearnNum,
		ActiveCells:          c.activeCells,
		WinnerCells:          c.winnerCells,
		ActiveSegments:       c.activeSegments,
		MatchingSegments:     c.matchingSegments,
		NumActiveConnected:   c.numActiveConnected,
		NumActivePotential:   c.numActivePotential,
		Seed:                 c.source.seed,
		Draws:                c.source.draws,
	}
	cp.Columns = make([]Column, 0, c.NumColumns())
	err := c.store.ForEach(func(col *Column) error {
		cp.Columns = append(cp.Columns, *col)
		return nil
	})
	if err != nil {
		return fmt.Errorf("checkpoint columns: %w", err)
	}

	cw := &countingWriter{w: w}
	enc, err := zstd.NewWriter(cw)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := gob.NewEncoder(enc).Encode(&cp); err != nil {
		enc.Close()
		return fmt.Errorf("checkpoint encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("checkpoint flush: %w", err)
	}

	c.componentLogger("checkpoint").Info("saved",
		slog.String("size", datasize.ByteSize(cw.n).HumanReadable()),
		slog.Int("segments", c.numSegments),
		slog.Int("synapses", c.numSynapses))
	return nil
}

/*
 Restores a checkpoint written by Save. Columns are written into store,
nil selects a MemoryColumnStore.
*/
func LoadConnections(r io.Reader, store ColumnStore) (*Connections, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer dec.Close()

	var cp checkpoint
	if err := gob.NewDecoder(dec).Decode(&cp); err != nil {
		return nil, fmt.Errorf("checkpoint decode: %w", err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint version %d, expected %d", cp.Version, checkpointVersion)
	}
	cfg := &cp.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cp.Columns) != cfg.NumColumns() || len(cp.Cells) != cfg.NumCells() {
		return nil, fmt.Errorf("%w: checkpoint holds %d columns and %d cells", ErrStructural, len(cp.Columns), len(cp.Cells))
	}

	if store == nil {
		store = NewMemoryColumnStore()
	}
	c := newConnections(cfg, store)
	for i := range cp.Columns {
		col := cp.Columns[i]
		if err := store.Set(col.Index, &col); err != nil {
			return nil, fmt.Errorf("restore column %d: %w", col.Index, err)
		}
	}

	c.cells = cp.Cells
	c.segments = cp.Segments
	c.synapses = cp.Synapses
	c.freeSegments = cp.FreeSegments
	c.freeSynapses = cp.FreeSynapses
	c.numSegments = cp.NumSegments
	c.numSynapses = cp.NumSynapses
	c.nextSegmentOrdinal = cp.NextSegmentOrdinal
	c.nextSynapseOrdinal = cp.NextSynapseOrdinal
	c.tmIteration = cp.TMIteration

	restoreFloats(c.overlapDutyCycles, cp.OverlapDutyCycles)
	restoreFloats(c.activeDutyCycles, cp.ActiveDutyCycles)
	restoreFloats(c.minOverlapDutyCycles, cp.MinOverlapDutyCycles)
	restoreFloats(c.minActiveDutyCycles, cp.MinActiveDutyCycles)
	restoreFloats(c.boostFactors, cp.BoostFactors)
	c.inhibitionRadius = cp.InhibitionRadius
	c.iterationNum = cp.IterationNum
	c.iterationLearnNum = cp.IterationLearnNum

	c.activeCells = cp.ActiveCells
	c.winnerCells = cp.WinnerCells
	c.activeSegments = cp.ActiveSegments
	c.matchingSegments = cp.MatchingSegments
	c.numActiveConnected = sizedInts(cp.NumActiveConnected, len(c.segments))
	c.numActivePotential = sizedInts(cp.NumActivePotential, len(c.segments))

	c.source = restoreSeededSource(cp.Seed, cp.Draws)
	c.random = rand.New(c.source)

	c.componentLogger("checkpoint").Info("loaded",
		slog.Int("columns", len(cp.Columns)),
		slog.Int("segments", c.numSegments),
		slog.Int("synapses", c.numSynapses))
	return c, nil
}

//gob drops zero values, so empty vectors come back nil
func restoreFloats(dst, src []float64) {
	copy(dst, src)
}

func sizedInts(src []int, n int) []int {
	out := make([]int, n)
	copy(out, src)
	return out
}
