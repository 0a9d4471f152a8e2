package model

// Metadata describes the exported model: tensor shapes and the class labels
// in output-index order.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
}

// Prediction is one classification result.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Classifier maps a normalized image tensor to predictions ranked by
// descending confidence.
type Classifier interface {
	Predict(input []float32) ([]Prediction, error)
}
