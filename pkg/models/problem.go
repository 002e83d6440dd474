package models

// APIProblem represents an RFC 7807 Problem Details response body.
type APIProblem struct {
	Type     string `json:"type" example:"https://netbridge.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"invalid frequency"`
	Instance string `json:"instance,omitempty" example:"/api/v1/netmanager/channels/abc"`
}
