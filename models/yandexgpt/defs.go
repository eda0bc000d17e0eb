package yandexgpt

// Yandex Foundation Models completion API types.

type CompletionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions CompletionOptions `json:"completionOptions"`
	Messages          []Message         `json:"messages"`
}

type CompletionOptions struct {
	Stream      bool     `json:"stream"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	MaxTokens   string   `json:"maxTokens,omitempty"` // int64 encoded as string
}

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type CompletionResponse struct {
	Result CompletionResult `json:"result"`
}

type CompletionResult struct {
	Alternatives []Alternative `json:"alternatives"`
	Usage        *Usage        `json:"usage,omitempty"`
	ModelVersion string        `json:"modelVersion"`
}

type Alternative struct {
	Message Message `json:"message"`
	Status  string  `json:"status"`
}

type Usage struct {
	InputTextTokens  string `json:"inputTextTokens"`
	CompletionTokens string `json:"completionTokens"`
	TotalTokens      string `json:"totalTokens"`
}

type ErrorResponse struct {
	Error struct {
		GRPCCode   int    `json:"grpcCode"`
		HTTPCode   int    `json:"httpCode"`
		Message    string `json:"message"`
		HTTPStatus string `json:"httpStatus"`
	} `json:"error"`
	Message string `json:"message"`
}

// Yandex Vision batchAnalyze API types.

type AnalyzeRequest struct {
	FolderID     string        `json:"folderId,omitempty"`
	AnalyzeSpecs []AnalyzeSpec `json:"analyze_specs"`
}

type AnalyzeSpec struct {
	Content  string    `json:"content"` // base64 image bytes
	MimeType string    `json:"mimeType,omitempty"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type                string               `json:"type"` // TEXT_DETECTION, OBJECT_DETECTION, FACE_DETECTION
	TextDetectionConfig *TextDetectionConfig `json:"textDetectionConfig,omitempty"`
}

type TextDetectionConfig struct {
	LanguageCodes []string `json:"languageCodes"`
}

type AnalyzeResponse struct {
	Results []SpecResult `json:"results"`
}

type SpecResult struct {
	Results []FeatureResult `json:"results"`
	Error   *VisionError    `json:"error,omitempty"`
}

type VisionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type FeatureResult struct {
	TextDetection   *TextAnnotation   `json:"textDetection,omitempty"`
	ObjectDetection *ObjectAnnotation `json:"objectDetection,omitempty"`
	FaceDetection   *FaceAnnotation   `json:"faceDetection,omitempty"`
	Error           *VisionError      `json:"error,omitempty"`
}

type TextAnnotation struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Lines []Line `json:"lines"`
}

type Line struct {
	Words []Word `json:"words"`
}

type Word struct {
	Text string `json:"text"`
}

type ObjectAnnotation struct {
	Objects []DetectedObject `json:"objects"`
}

type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type FaceAnnotation struct {
	Faces []Face `json:"faces"`
}

type Face struct {
	BoundingBox map[string]interface{} `json:"boundingBox,omitempty"`
}
