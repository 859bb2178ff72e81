package analytics

import "github.com/ehr/fhirportal/internal/platform/document"

// RiskScore is keyed by patient and risk type.
type RiskScore struct {
	PatientID       string
	RiskType        string
	Score           float64
	Level           string
	Confidence      float64
	Factors         []interface{}
	Recommendations []interface{}
}

// TrainingJob holds both training requests and deployed model versions.
// Versions use "<modelId>:<versionId>" as the job ID.
type TrainingJob struct {
	TrainingJobID string
	ModelName     string
	ModelType     string
	Status        string
	Configuration interface{}
	Progress      interface{}
}

type Alert struct {
	AlertID       string
	PatientID     string
	ModelID       string
	Configuration interface{}
	Assessment    interface{}
}

type TrendRequest struct {
	AnalysisID   string
	Parameters   document.Document
	Trends       []interface{}
	Correlations []interface{}
	Anomalies    []interface{}
}

type FHIRLink struct {
	LinkingID     string
	PatientID     string
	ModelID       string
	FHIRResources []interface{}
	AuditTrail    interface{}
}

func datasetInfoTemplate() document.Document {
	return document.Document{
		"totalRecords":      0,
		"trainingRecords":   0,
		"validationRecords": 0,
		"testRecords":       0,
		"featureCount":      0,
		"classDistribution": document.Document{},
	}
}

func progressTemplate() document.Document {
	return document.Document{"currentStep": "pending", "completionPercent": 0, "estimatedTimeRemaining": nil}
}

func riskAssessmentTemplate() document.Document {
	return document.Document{
		"overallRisk": 0.0,
		"riskLevel":   "low",
		"confidence":  0.0,
		"prediction": document.Document{
			"condition":   "unspecified",
			"probability": 0.0,
			"timeHorizon": "P0D",
		},
	}
}

func trend(metric string, current, previous, change float64, direction, significance string) document.Document {
	return document.Document{
		"metric": metric,
		"overall": document.Document{
			"currentValue":   current,
			"previousPeriod": previous,
			"changePercent":  change,
			"trend":          direction,
			"significance":   significance,
		},
		"byDemographics": []interface{}{},
		"timeSeriesData": []interface{}{},
	}
}
