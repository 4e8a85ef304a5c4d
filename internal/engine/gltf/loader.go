// Package gltf loads glTF 2.0 and GLB models into scene graphs.
package gltf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// Loader reads models from local paths or http(s) URLs. Remote .gltf files
// must embed their buffers; GLB is self-contained.
type Loader struct {
	httpClient *http.Client
	logger     *slog.Logger
	tempDir    string
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the client used for remote models.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.httpClient = c }
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default(),
		tempDir:    os.TempDir(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements engine.Loader.
func (l *Loader) Load(ctx context.Context, modelURL string) (*scene.Object, error) {
	path, cleanup, err := l.localPath(ctx, modelURL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model %s: %w", modelURL, err)
	}

	root := scene.NewGroup(filepath.Base(path))
	root.Kind = scene.KindMesh
	for _, idx := range rootNodes(doc) {
		if child := l.buildNode(doc, idx, 0); child != nil {
			root.Add(child)
		}
	}

	l.logger.Debug("Loaded model", "url", modelURL, "nodes", len(doc.Nodes), "meshes", len(doc.Meshes))
	return root, nil
}

func (l *Loader) localPath(ctx context.Context, modelURL string) (string, func(), error) {
	u, err := url.Parse(modelURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		p := modelURL
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return p, func() {}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetching model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetching model: unexpected status %d", resp.StatusCode)
	}

	ext := strings.ToLower(filepath.Ext(u.Path))
	if ext != ".gltf" && ext != ".glb" {
		ext = ".glb"
	}
	f, err := os.CreateTemp(l.tempDir, "gear-model-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("downloading model: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = int(*doc.Scene)
		}
		if si >= 0 && si < len(doc.Scenes) {
			out := make([]int, 0, len(doc.Scenes[si].Nodes))
			for _, n := range doc.Scenes[si].Nodes {
				out = append(out, int(n))
			}
			return out
		}
	}

	// no scene: every node nobody references is a root
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[int(c)] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

const maxDepth = 64

func (l *Loader) buildNode(doc *gltf.Document, idx, depth int) *scene.Object {
	if idx < 0 || idx >= len(doc.Nodes) || depth > maxDepth {
		return nil
	}
	n := doc.Nodes[idx]

	obj := scene.NewGroup(n.Name)
	applyTransform(obj, n)

	if n.Mesh != nil {
		mi := int(*n.Mesh)
		if mi >= 0 && mi < len(doc.Meshes) {
			for pi, prim := range doc.Meshes[mi].Primitives {
				shape := l.primitiveShape(doc, prim)
				if shape == nil {
					continue
				}
				name := fmt.Sprintf("%s#%d", doc.Meshes[mi].Name, pi)
				obj.Add(scene.NewMeshObject(name, scene.KindMesh, shape, scene.Material{Color: 0xffffff, Opacity: 1}))
			}
		}
	}

	for _, c := range n.Children {
		if child := l.buildNode(doc, int(c), depth+1); child != nil {
			obj.Add(child)
		}
	}
	return obj
}

func applyTransform(obj *scene.Object, n *gltf.Node) {
	m := n.Matrix
	identity := true
	for i, v := range m {
		want := 0.0
		if i%5 == 0 {
			want = 1
		}
		if float64(v) != want {
			identity = false
			break
		}
	}

	if !identity && !isZero16(m) {
		var mat mgl64.Mat4
		for i := range mat {
			mat[i] = float64(m[i])
		}
		decompose(obj, mat)
		return
	}

	t := n.Translation
	obj.Position = core.Vec3{X: float64(t[0]), Y: float64(t[1]), Z: float64(t[2])}

	r := n.Rotation
	obj.Rotation = scene.EulerFromQuaternion(float64(r[0]), float64(r[1]), float64(r[2]), float64(r[3]))

	s := n.Scale
	if float64(s[0]) != 0 || float64(s[1]) != 0 || float64(s[2]) != 0 {
		obj.Scale = core.Vec3{X: float64(s[0]), Y: float64(s[1]), Z: float64(s[2])}
	}
}

func isZero16[T float32 | float64](m [16]T) bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}

// decompose splits a column-major TRS matrix into the object's transform.
func decompose(obj *scene.Object, m mgl64.Mat4) {
	obj.Position = core.Vec3{X: m[12], Y: m[13], Z: m[14]}

	c0 := mgl64.Vec3{m[0], m[1], m[2]}
	c1 := mgl64.Vec3{m[4], m[5], m[6]}
	c2 := mgl64.Vec3{m[8], m[9], m[10]}
	sx, sy, sz := c0.Len(), c1.Len(), c2.Len()
	if m.Det() < 0 {
		sx = -sx
	}
	obj.Scale = core.Vec3{X: sx, Y: sy, Z: sz}
	if sx == 0 || sy == 0 || sz == 0 {
		return
	}

	rot := mgl64.Mat4FromCols(
		c0.Mul(1/sx).Vec4(0),
		c1.Mul(1/sy).Vec4(0),
		c2.Mul(1/sz).Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	q := mgl64.Mat4ToQuat(rot)
	obj.Rotation = scene.EulerFromQuaternion(q.V[0], q.V[1], q.V[2], q.W)
}

// primitiveShape reads a triangle primitive's geometry, falling back to the
// POSITION accessor's min/max box when the vertex data cannot be read.
func (l *Loader) primitiveShape(doc *gltf.Document, prim *gltf.Primitive) scene.Shape {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok || int(posIdx) < 0 || int(posIdx) >= len(doc.Accessors) {
		return nil
	}
	acc := doc.Accessors[int(posIdx)]

	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		l.logger.Debug("Falling back to accessor bounds", "error", err)
		return accessorBox(acc)
	}

	verts := make([]mgl64.Vec3, len(positions))
	for i, p := range positions {
		verts[i] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}

	var indices []uint32
	if prim.Indices != nil {
		ii := int(*prim.Indices)
		if ii >= 0 && ii < len(doc.Accessors) {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[ii], nil)
			if err != nil {
				l.logger.Debug("Falling back to accessor bounds", "error", err)
				return accessorBox(acc)
			}
		}
	}
	return scene.NewMesh(verts, indices)
}

func accessorBox(acc *gltf.Accessor) scene.Shape {
	if len(acc.Min) < 3 || len(acc.Max) < 3 {
		return nil
	}
	lo := core.Vec3{X: float64(acc.Min[0]), Y: float64(acc.Min[1]), Z: float64(acc.Min[2])}
	hi := core.Vec3{X: float64(acc.Max[0]), Y: float64(acc.Max[1]), Z: float64(acc.Max[2])}
	size := hi.Sub(lo)
	if math.IsNaN(size.X) || size.X < 0 || size.Y < 0 || size.Z < 0 {
		return nil
	}
	return offsetBox{center: lo.Add(hi).Scale(0.5), box: scene.Cuboid{Size: size}}
}

// offsetBox is a cuboid whose centre is not the local origin.
type offsetBox struct {
	center core.Vec3
	box    scene.Cuboid
}

func (o offsetBox) Intersect(origin, dir mgl64.Vec3) (float64, bool) {
	c := mgl64.Vec3{o.center.X, o.center.Y, o.center.Z}
	return o.box.Intersect(origin.Sub(c), dir)
}

func (o offsetBox) Bounds() core.Box {
	b := o.box.Bounds()
	return core.Box{Min: b.Min.Add(o.center), Max: b.Max.Add(o.center)}
}
