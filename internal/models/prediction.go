package models

// PredictionRequest carries the features expected by the CO2 model.
// Pointers distinguish a missing feature from a zero value.
type PredictionRequest struct {
	AT   *float64 `json:"AT"`
	AP   *float64 `json:"AP"`
	AH   *float64 `json:"AH"`
	AFDP *float64 `json:"AFDP"`
	GTEP *float64 `json:"GTEP"`
	TIT  *float64 `json:"TIT"`
	TAT  *float64 `json:"TAT"`
	TEY  *float64 `json:"TEY"`
	CDP  *float64 `json:"CDP"`
	NOX  *float64 `json:"NOX"`
}

// MissingFeatures lists the feature names that were not supplied, in model order.
func (p PredictionRequest) MissingFeatures() []string {
	features := []struct {
		name  string
		value *float64
	}{
		{"AT", p.AT}, {"AP", p.AP}, {"AH", p.AH}, {"AFDP", p.AFDP}, {"GTEP", p.GTEP},
		{"TIT", p.TIT}, {"TAT", p.TAT}, {"TEY", p.TEY}, {"CDP", p.CDP}, {"NOX", p.NOX},
	}
	var missing []string
	for _, f := range features {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// PredictionResponse is returned by the prediction service.
type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
}
