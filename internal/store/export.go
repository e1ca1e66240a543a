package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/spinsim/internal/mesh"
)

type MeshData struct {
	Nx         int     `json:"nx"`
	Ny         int     `json:"ny"`
	Nz         int     `json:"nz"`
	Dx         float64 `json:"dx"`
	Dy         float64 `json:"dy"`
	Dz         float64 `json:"dz"`
	UnitLength float64 `json:"unit_length"`
	PBC        bool    `json:"pbc"`
}

// Snapshot is a self-describing view of one spin configuration. Spin keeps
// the component-major buffer layout; Positions are cell centres in mesh
// units.
type Snapshot struct {
	Name      string             `json:"name,omitempty"`
	Time      float64            `json:"time"`
	Mesh      MeshData           `json:"mesh"`
	Positions []mesh.Vec3        `json:"positions"`
	Spin      []float64          `json:"m"`
	Average   mesh.Vec3          `json:"average"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// NewSnapshot copies spin so later simulation steps do not alter it.
func NewSnapshot(m *mesh.Mesh, spin []float64, t float64) *Snapshot {
	buf := make([]float64, len(spin))
	copy(buf, spin)

	snap := &Snapshot{
		Time: t,
		Mesh: MeshData{
			Nx: m.Nx, Ny: m.Ny, Nz: m.Nz,
			Dx: m.Dx, Dy: m.Dy, Dz: m.Dz,
			UnitLength: m.UnitLength,
			PBC:        m.PBC,
		},
		Positions: m.Positions(),
		Spin:      buf,
	}

	n := m.Len()
	if n > 0 && len(buf) == 3*n {
		for a := 0; a < 3; a++ {
			for i := 0; i < n; i++ {
				snap.Average[a] += buf[a*n+i]
			}
			snap.Average[a] /= float64(n)
		}
	}
	return snap
}

func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func ExportJSON(path string, snap *Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteSnapshot(file, snap)
}

func ExportJSONStdout(snap *Snapshot) error {
	return WriteSnapshot(os.Stdout, snap)
}
