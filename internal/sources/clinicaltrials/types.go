// Package clinicaltrials provides a client for the ClinicalTrials.gov API v2.
//
// The v2 API exposes registered studies as JSON documents organized
// into protocol modules. Pagination is token based, so random access
// by offset requires over-fetching from the first page and skipping
// locally. The API is public and requires no key.
//
// API Documentation: https://clinicaltrials.gov/data-api/api
package clinicaltrials

// StudiesResponse represents the response from the studies endpoint.
type StudiesResponse struct {
	Studies []Study `json:"studies"`

	// NextPageToken is set when more pages are available.
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// Study represents a single registered study.
type Study struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
}

// ProtocolSection groups the protocol modules of a study.
type ProtocolSection struct {
	IdentificationModule IdentificationModule `json:"identificationModule"`
	DescriptionModule    *DescriptionModule   `json:"descriptionModule,omitempty"`
	StatusModule         *StatusModule        `json:"statusModule,omitempty"`

	ContactsLocationsModule *ContactsLocationsModule `json:"contactsLocationsModule,omitempty"`
}

// IdentificationModule carries the study identifiers and titles.
type IdentificationModule struct {
	NCTID         string `json:"nctId"`
	BriefTitle    string `json:"briefTitle,omitempty"`
	OfficialTitle string `json:"officialTitle,omitempty"`
}

// DescriptionModule carries the study summaries.
type DescriptionModule struct {
	BriefSummary        string `json:"briefSummary,omitempty"`
	DetailedDescription string `json:"detailedDescription,omitempty"`
}

// StatusModule carries the study lifecycle dates.
type StatusModule struct {
	StartDateStruct *DateStruct `json:"startDateStruct,omitempty"`
}

// DateStruct holds a partial date such as "2021-03" or "2021-03-15".
type DateStruct struct {
	Date string `json:"date,omitempty"`
}

// ContactsLocationsModule lists the people attached to a study.
type ContactsLocationsModule struct {
	OverallOfficials []Official `json:"overallOfficials,omitempty"`
}

// Official represents an investigator or study chair.
type Official struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}
