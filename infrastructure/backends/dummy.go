package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"
)

const (
	dummyWidth  = 600
	dummyHeight = 200
)

// Dummy renders placeholder graphs for every target. It stands in for the
// real stores in development and demos.
type Dummy struct {
	caps services.Capabilities
	now  func() time.Time
}

// NewDummy creates the placeholder backend.
func NewDummy() *Dummy {
	return &Dummy{caps: services.DefaultCapabilities[services.BackendDummy], now: time.Now}
}

func (d *Dummy) ID() services.BackendID { return services.BackendDummy }

func (d *Dummy) Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool {
	return d.caps.Allows(target.Kind(), category, protocol)
}

func (d *Dummy) Render(_ context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	seed := dummySeed(query)
	if query.Params.Type == vo.OutputRawData {
		return d.renderSeries(query, seed)
	}

	img := image.NewRGBA(image.Rect(0, 0, dummyWidth, dummyHeight))
	background := color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
	in := color.RGBA{R: 0x00, G: 0xcc, B: 0x00, A: 0xff}
	out := color.RGBA{R: 0x00, G: 0x2a, B: 0x97, A: 0xff}

	for y := 0; y < dummyHeight; y++ {
		for x := 0; x < dummyWidth; x++ {
			img.Set(x, y, background)
		}
	}
	for x := 0; x < dummyWidth; x++ {
		h := dummyLevel(seed, x) * (dummyHeight - 20) / 100
		for y := dummyHeight - 1; y > dummyHeight-1-h; y-- {
			img.Set(x, y, in)
		}
		outY := dummyHeight - 1 - dummyLevel(seed>>7, x)*(dummyHeight-20)/100
		img.Set(x, outY, out)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return &ports.Artifact{Data: buf.Bytes(), ContentType: query.Params.Type.ContentType(), Backend: d.ID()}, nil
}

func (d *Dummy) renderSeries(query ports.BackendQuery, seed uint32) (*ports.Artifact, error) {
	const samples = 48
	window := periodWindow(query.Params.Period)
	end := d.now().Truncate(time.Minute)
	step := window / samples

	points := make([]Point, 0, samples)
	for i := 0; i < samples; i++ {
		ts := end.Add(-window + time.Duration(i)*step)
		in := float64(dummyLevel(seed, i)) * 1e6
		outLevel := float64(dummyLevel(seed>>7, i)) * 1e6
		points = append(points, Point{Time: ts.Unix(), AvgIn: in, AvgOut: outLevel, MaxIn: in * 1.2, MaxOut: outLevel * 1.2})
	}

	data, err := json.Marshal(series{
		Target:   query.Target.Identity(),
		Category: query.Params.Category,
		Protocol: query.Params.Protocol,
		Period:   query.Params.Period,
		Points:   points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode placeholder series: %w", err)
	}
	return &ports.Artifact{Data: data, ContentType: query.Params.Type.ContentType(), Backend: d.ID()}, nil
}

// dummySeed keeps placeholders stable per request.
func dummySeed(query ports.BackendQuery) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s", query.Target.Identity(), query.Params.Category, query.Params.Protocol, query.Params.Period)
	return h.Sum32()
}

// dummyLevel is a deterministic 0..100 curve.
func dummyLevel(seed uint32, x int) int {
	v := (uint32(x)*2654435761 ^ seed) % 41
	base := 30 + (x*7/dummyWidth+int(seed%5))*5
	level := base + int(v) - 20
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	default:
		return level
	}
}

var _ ports.Backend = (*Dummy)(nil)
