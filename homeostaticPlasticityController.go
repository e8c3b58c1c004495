package htm

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"github.com/htm-community/htmcore/utils"
	"github.com/zacg/ints"
)

//Invoked on every stability transition
type StabilityCallback func(isStable bool, numPatterns int, avgActiveColumns float64, seenInputs int)

/*
 The homeostatic plasticity controller watches the spatial pooler output
per input pattern. When every known pattern keeps producing the same
columns for NumOfCyclesToWaitOnChange observations the pooler is
considered stable and boosting is switched off. Any pattern whose output
changes makes it unstable again.
*/
type HomeostaticPlasticityController struct {
	MinCycles                   int
	NumOfCyclesToWaitOnChange   int
	RequiredSimilarityThreshold float64
	// Length of the per pattern active column count history.
	MaxPreviousElements int

	cycle            int
	isStable         bool
	inOutMap         map[string][]int
	numStableCycles  map[string]int
	numActiveColumns map[string][]int

	onStabilityStatusChanged StabilityCallback
	logger                   *slog.Logger
}

func NewHomeostaticPlasticityController(minCycles, numOfCyclesToWaitOnChange int, onChange StabilityCallback) *HomeostaticPlasticityController {
	return &HomeostaticPlasticityController{
		MinCycles:                   minCycles,
		NumOfCyclesToWaitOnChange:   numOfCyclesToWaitOnChange,
		RequiredSimilarityThreshold: 0.97,
		MaxPreviousElements:         5,
		inOutMap:                    make(map[string][]int),
		numStableCycles:             make(map[string]int),
		numActiveColumns:            make(map[string][]int),
		onStabilityStatusChanged:    onChange,
		logger:                      slog.Default().With(slog.String("component", "homeostatic_controller")),
	}
}

func (h *HomeostaticPlasticityController) SetLogger(logger *slog.Logger) {
	h.logger = logger.With(slog.String("component", "homeostatic_controller"))
}

func (h *HomeostaticPlasticityController) SetCallback(fn StabilityCallback) {
	h.onStabilityStatusChanged = fn
}

func (h *HomeostaticPlasticityController) IsStable() bool {
	return h.isStable
}

//Number of inputs observed
func (h *HomeostaticPlasticityController) Cycle() int {
	return h.cycle
}

//Number of distinct input patterns observed
func (h *HomeostaticPlasticityController) NumPatterns() int {
	return len(h.inOutMap)
}

/*
 Records one input/output observation and returns the stability flag.
input is the dense input vector, activeColumns the pooler output.
*/
func (h *HomeostaticPlasticityController) Compute(input []int, activeColumns []int) bool {
	h.cycle++
	key := InputKey(input)
	output := utils.SortUniqueInt(append([]int(nil), activeColumns...))

	history := append(h.numActiveColumns[key], len(output))
	if len(history) > h.MaxPreviousElements {
		history = history[len(history)-h.MaxPreviousElements:]
	}
	h.numActiveColumns[key] = history

	// a similar output only counts while the active column count holds steady
	prev, ok := h.inOutMap[key]
	if ok && Similarity(prev, output) >= h.RequiredSimilarityThreshold && avgDelta(history) == 0 {
		h.numStableCycles[key]++
	} else {
		h.numStableCycles[key] = 0
	}
	h.inOutMap[key] = output

	stable := h.cycle >= h.MinCycles && h.allPatternsStable()
	if stable != h.isStable {
		h.isStable = stable
		avg := h.avgActiveColumns(key)
		h.logger.Info("stability changed",
			slog.Bool("stable", stable),
			slog.Int("patterns", len(h.inOutMap)),
			slog.Float64("avg_active_columns", avg),
			slog.Int("cycle", h.cycle))
		if h.onStabilityStatusChanged != nil {
			h.onStabilityStatusChanged(stable, len(h.inOutMap), avg, h.cycle)
		}
	}
	return h.isStable
}

//Mean absolute step between consecutive entries
func avgDelta(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for i := 0; i+1 < len(values); i++ {
		d := values[i] - values[i+1]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(values))
}

func (h *HomeostaticPlasticityController) allPatternsStable() bool {
	for _, n := range h.numStableCycles {
		if n < h.NumOfCyclesToWaitOnChange {
			return false
		}
	}
	return len(h.numStableCycles) > 0
}

func (h *HomeostaticPlasticityController) avgActiveColumns(key string) float64 {
	history := h.numActiveColumns[key]
	if len(history) == 0 {
		return 0
	}
	sum := 0
	for _, v := range history {
		sum += v
	}
	return float64(sum) / float64(len(history))
}

/*
 Stable key of an input vector: a name based UUID over its on bit
indices.
*/
func InputKey(input []int) string {
	on := utils.NonZeroInt(input)
	buf := make([]byte, 4*len(on))
	for i, idx := range on {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(idx))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, buf).String()
}

/*
 Fraction of shared indices relative to the larger set, in [0,1]. Two
empty sets compare as -1.
*/
func Similarity(a, b []int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return -1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa := utils.SortUniqueInt(append([]int(nil), a...))
	sb := utils.SortUniqueInt(append([]int(nil), b...))
	shared := utils.IntersectCount(sa, sb)
	return float64(shared) / float64(max(len(sa), len(sb)))
}

//Writes per pattern counters, least stable first
func (h *HomeostaticPlasticityController) TraceState(w io.Writer) error {
	keys := make([]string, 0, len(h.numStableCycles))
	for k := range h.numStableCycles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	counts := make([]int, len(keys))
	for i, k := range keys {
		counts[i] = h.numStableCycles[k]
	}
	order := make([]int, len(keys))
	utils.FillSliceWithIdxInt(order)
	ints.Argsort(counts, order)

	if _, err := fmt.Fprintf(w, "cycle=%d stable=%v patterns=%d required=%d\n",
		h.cycle, h.isStable, len(keys), h.NumOfCyclesToWaitOnChange); err != nil {
		return err
	}
	for _, i := range order {
		k := keys[i]
		if _, err := fmt.Fprintf(w, "%s\t%d\t%.2f\n", k, h.numStableCycles[k], h.avgActiveColumns(k)); err != nil {
			return err
		}
	}
	return nil
}

//Compares configuration and every per pattern counter
func (h *HomeostaticPlasticityController) Equals(other *HomeostaticPlasticityController) bool {
	if other == nil {
		return false
	}
	return h.MinCycles == other.MinCycles &&
		h.NumOfCyclesToWaitOnChange == other.NumOfCyclesToWaitOnChange &&
		h.RequiredSimilarityThreshold == other.RequiredSimilarityThreshold &&
		h.MaxPreviousElements == other.MaxPreviousElements &&
		h.cycle == other.cycle &&
		h.isStable == other.isStable &&
		reflect.DeepEqual(h.inOutMap, other.inOutMap) &&
		reflect.DeepEqual(h.numStableCycles, other.numStableCycles) &&
		reflect.DeepEqual(h.numActiveColumns, other.numActiveColumns)
}

type hpcSnapshot struct {
	MinCycles                   int
	NumOfCyclesToWaitOnChange   int
	RequiredSimilarityThreshold float64
	MaxPreviousElements         int
	Cycle                       int
	IsStable                    bool
	InOutMap                    map[string][]int
	NumStableCycles             map[string]int
	NumActiveColumns            map[string][]int
}

//Gob encodes the controller state, the callback is not written
func (h *HomeostaticPlasticityController) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(hpcSnapshot{
		MinCycles:                   h.MinCycles,
		NumOfCyclesToWaitOnChange:   h.NumOfCyclesToWaitOnChange,
		RequiredSimilarityThreshold: h.RequiredSimilarityThreshold,
		MaxPreviousElements:         h.MaxPreviousElements,
		Cycle:                       h.cycle,
		IsStable:                    h.isStable,
		InOutMap:                    h.inOutMap,
		NumStableCycles:             h.numStableCycles,
		NumActiveColumns:            h.numActiveColumns,
	})
}

func LoadHomeostaticPlasticityController(r io.Reader, onChange StabilityCallback) (*HomeostaticPlasticityController, error) {
	var s hpcSnapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode homeostatic controller: %w", err)
	}
	h := NewHomeostaticPlasticityController(s.MinCycles, s.NumOfCyclesToWaitOnChange, onChange)
	h.RequiredSimilarityThreshold = s.RequiredSimilarityThreshold
	h.MaxPreviousElements = s.MaxPreviousElements
	h.cycle = s.Cycle
	h.isStable = s.IsStable
	if s.InOutMap != nil {
		h.inOutMap = s.InOutMap
	}
	if s.NumStableCycles != nil {
		h.numStableCycles = s.NumStableCycles
	}
	if s.NumActiveColumns != nil {
		h.numActiveColumns = s.NumActiveColumns
	}
	return h, nil
}
