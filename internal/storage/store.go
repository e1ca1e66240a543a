package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/spinsim/internal/mesh"
)

const (
	metadataFile = "metadata.json"
	averagesFile = "averages.csv"
	spinFile     = "m.bin"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Mode         string             `json:"mode"`
	Sites        int                `json:"sites"`
	Mesh         mesh.Config        `json:"mesh"`
	Temperature  float64            `json:"temperature"`
	Duration     float64            `json:"duration"`
	FinalTime    float64            `json:"final_time"`
	Samples      int                `json:"samples"`
	Interactions []string           `json:"interactions"`
	Metrics      map[string]float64 `json:"metrics"`
	Error        string             `json:"error,omitempty"`
}

// Record is the trajectory persisted alongside the metadata.
type Record struct {
	Times    []float64
	Averages []mesh.Vec3
	Energies []float64
	Spin     []float64
}

// Save writes a new run directory and returns its id.
func (s *Store) Save(meta RunMetadata, rec Record) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeAverages(filepath.Join(runDir, averagesFile), rec); err != nil {
		return "", err
	}
	if rec.Spin != nil {
		err := writeFile(filepath.Join(runDir, spinFile), func(w io.Writer) error {
			return WriteSpin(w, rec.Spin)
		})
		if err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

// writeFile creates path and hands it to write. A failing Close is reported
// since it may mean buffered data never reached disk.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeInto(f, &err)
	return write(f)
}

// closeInto closes c and stores its error in *err unless one is already set.
func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeAverages(path string, rec Record) error {
	return writeFile(path, func(f io.Writer) error {
		return writeAverageRows(f, rec)
	})
}

func writeAverageRows(f io.Writer, rec Record) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "mx", "my", "mz", "energy"}); err != nil {
		return err
	}

	for i, t := range rec.Times {
		row := []string{formatFloat(t)}
		if i < len(rec.Averages) {
			m := rec.Averages[i]
			row = append(row, formatFloat(m[0]), formatFloat(m[1]), formatFloat(m[2]))
		} else {
			row = append(row, "0", "0", "0")
		}
		if i < len(rec.Energies) {
			row = append(row, formatFloat(rec.Energies[i]))
		} else {
			row = append(row, "0")
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadAverages reads the sampled trajectory of a run. Spin is left nil.
func (s *Store) LoadAverages(runID string) (Record, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, averagesFile))
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5

	rows, err := r.ReadAll()
	if err != nil {
		return Record{}, fmt.Errorf("run %s: %w", runID, err)
	}

	var rec Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		var vals [5]float64
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Record{}, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		rec.Times = append(rec.Times, vals[0])
		rec.Averages = append(rec.Averages, mesh.Vec3{vals[1], vals[2], vals[3]})
		rec.Energies = append(rec.Energies, vals[4])
	}
	return rec, nil
}

// LoadSpin reads the final spin buffer of a run.
func (s *Store) LoadSpin(runID string) ([]float64, error) {
	return ReadSpinFile(filepath.Join(s.baseDir, runID, spinFile))
}

func ReadSpinFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSpin(f)
}
