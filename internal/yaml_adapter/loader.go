package yaml_adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type document struct {
	Network  *networkDoc  `yaml:"network"`
	Actors   []actorDoc   `yaml:"actors"`
	Samplers []samplerDoc `yaml:"samplers"`
	Links    []linkDoc    `yaml:"links"`
}

type networkDoc struct {
	StrictRates     bool   `yaml:"strict_rates"`
	DefaultCapacity int    `yaml:"default_capacity"`
	Decimation      string `yaml:"decimation"`
}

type actorDoc struct {
	Type      string    `yaml:"type"`
	Name      string    `yaml:"name"`
	Rate      *int      `yaml:"rate"`
	Horizon   int       `yaml:"horizon"`
	Arguments yaml.Node `yaml:"arguments"`
}

type samplerDoc struct {
	Name   string `yaml:"name"`
	Rate   int    `yaml:"rate"`
	Policy string `yaml:"policy"`
}

type linkDoc struct {
	From     string    `yaml:"from"`
	To       string    `yaml:"to"`
	Capacity int       `yaml:"capacity"`
	Feedback bool      `yaml:"feedback"`
	Seed     yaml.Node `yaml:"seed"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load reads every YAML file found under paths and merges them. A file may
// hold several documents separated by `---`.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := config.New()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
		}
		part, err := l.LoadSource(ctx, data, file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	logger.Debug("YAML loading complete.", "actors", len(model.Actors), "samplers", len(model.Samplers), "links", len(model.Links))
	return model, nil
}

// LoadSource parses an in-memory YAML stream. filename is only used in
// error messages.
func (l *Loader) LoadSource(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	model := config.New()

	decoder := yaml.NewDecoder(bytes.NewReader(src))
	decoder.KnownFields(true) // Reject unknown fields
	for {
		var doc document
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML file %s: %w", filename, err)
		}
		part, err := translate(ctx, &doc, filename)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("in %s: %w", filename, err)
		}
	}
	return model, nil
}

func translate(ctx context.Context, doc *document, filename string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	part := config.New()

	if doc.Network != nil {
		part.Settings = &config.Settings{
			StrictRates:     doc.Network.StrictRates,
			DefaultCapacity: doc.Network.DefaultCapacity,
			Decimation:      doc.Network.Decimation,
		}
	}

	for i, a := range doc.Actors {
		origin := fmt.Sprintf("%s:actors[%d]", filename, i)
		args := cty.NilVal
		if a.Arguments.Kind != 0 {
			v, err := nodeToCty(&a.Arguments)
			if err != nil {
				return nil, fmt.Errorf("%s: actor '%s' arguments: %w", origin, a.Name, err)
			}
			if !v.IsNull() && !v.Type().IsObjectType() {
				return nil, fmt.Errorf("%s: actor '%s' arguments must be a mapping", origin, a.Name)
			}
			args = v
		}
		rate := 1
		if a.Rate != nil {
			rate = *a.Rate
		}
		logger.Debug("Translating YAML actor to internal config model.", "actor_type", a.Type, "actor_name", a.Name)
		part.Actors = append(part.Actors, &config.Actor{
			Type:      a.Type,
			Name:      a.Name,
			Rate:      rate,
			Horizon:   a.Horizon,
			Arguments: args,
			Origin:    origin,
		})
	}

	for i, s := range doc.Samplers {
		part.Samplers = append(part.Samplers, &config.Sampler{
			Name:   s.Name,
			Rate:   s.Rate,
			Policy: s.Policy,
			Origin: fmt.Sprintf("%s:samplers[%d]", filename, i),
		})
	}

	for i, l := range doc.Links {
		origin := fmt.Sprintf("%s:links[%d]", filename, i)
		seeds, err := seedValues(&l.Seed)
		if err != nil {
			return nil, fmt.Errorf("%s: link %s -> %s: %w", origin, l.From, l.To, err)
		}
		part.Links = append(part.Links, &config.Link{
			From:     l.From,
			To:       l.To,
			Capacity: l.Capacity,
			Feedback: l.Feedback || len(seeds) > 0,
			Seeds:    seeds,
			Origin:   origin,
		})
	}
	return part, nil
}

func seedValues(n *yaml.Node) ([]cty.Value, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	v, err := nodeToCty(n)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Type().IsTupleType() {
		if v.LengthInt() == 0 {
			return nil, nil
		}
		return v.AsValueSlice(), nil
	}
	return []cty.Value{v}, nil
}
