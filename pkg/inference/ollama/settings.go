package ollama

import (
	"github.com/huandu/go-clone"
)

const DefaultModel = "gemma2:2b"

// Settings holds the ollama sampling options. Unset fields are left out of
// the request so the model's own defaults apply.
type Settings struct {
	Mirostat      *int     `yaml:"mirostat,omitempty" mapstructure:"mirostat"`
	MirostatEta   *float64 `yaml:"mirostat_eta,omitempty" mapstructure:"mirostat-eta"`
	MirostatTau   *float64 `yaml:"mirostat_tau,omitempty" mapstructure:"mirostat-tau"`
	NumCtx        *int     `yaml:"num_ctx,omitempty" mapstructure:"num-ctx"`
	NumGpu        *int     `yaml:"num_gpu,omitempty" mapstructure:"num-gpu"`
	NumThread     *int     `yaml:"num_thread,omitempty" mapstructure:"num-thread"`
	RepeatLastN   *int     `yaml:"repeat_last_n,omitempty" mapstructure:"repeat-last-n"`
	RepeatPenalty *float64 `yaml:"repeat_penalty,omitempty" mapstructure:"repeat-penalty"`
	Temperature   *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	Seed          *int     `yaml:"seed,omitempty" mapstructure:"seed"`
	Stop          []string `yaml:"stop,omitempty" mapstructure:"stop"`
	TfsZ          *float64 `yaml:"tfs_z,omitempty" mapstructure:"tfs-z"`
	NumPredict    *int     `yaml:"num_predict,omitempty" mapstructure:"num-predict"`
	TopK          *int     `yaml:"top_k,omitempty" mapstructure:"top-k"`
	TopP          *float64 `yaml:"top_p,omitempty" mapstructure:"top-p"`
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Options flattens the settings into the map ollama expects in a request,
// keyed by the API's option names. Unset fields are omitted.
func (s *Settings) Options() (map[string]interface{}, error) {
	ret := map[string]interface{}{}
	if s == nil {
		return ret, nil
	}

	ints := map[string]*int{
		"mirostat":      s.Mirostat,
		"num_ctx":       s.NumCtx,
		"num_gpu":       s.NumGpu,
		"num_thread":    s.NumThread,
		"repeat_last_n": s.RepeatLastN,
		"seed":          s.Seed,
		"num_predict":   s.NumPredict,
		"top_k":         s.TopK,
	}
	for k, v := range ints {
		if v != nil {
			ret[k] = *v
		}
	}

	floats := map[string]*float64{
		"mirostat_eta":   s.MirostatEta,
		"mirostat_tau":   s.MirostatTau,
		"repeat_penalty": s.RepeatPenalty,
		"temperature":    s.Temperature,
		"tfs_z":          s.TfsZ,
		"top_p":          s.TopP,
	}
	for k, v := range floats {
		if v != nil {
			ret[k] = *v
		}
	}

	if len(s.Stop) > 0 {
		ret["stop"] = append([]string(nil), s.Stop...)
	}

	return ret, nil
}
