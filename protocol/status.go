package protocol

import "encoding/json"

// StatusDocument is the server-list status payload carried by
// StatusResponse, serialized as a UTF-8 JSON document.
type StatusDocument struct {
	Version     StatusVersion     `json:"version"`
	Players     StatusPlayers     `json:"players"`
	Description StatusDescription `json:"description"`
}

// StatusVersion names the server software and its protocol number.
type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// StatusPlayers reports capacity, occupancy and an optional sample list.
type StatusPlayers struct {
	Max    int                  `json:"max"`
	Online int                  `json:"online"`
	Sample []StatusPlayerSample `json:"sample"`
}

// StatusPlayerSample is one entry of the player sample list.
type StatusPlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// StatusDescription is the MOTD shown in the client's server list.
type StatusDescription struct {
	Text string `json:"text"`
}

// Marshal serializes the document once. The resulting string is embedded in
// StatusResponse so dispatch never re-marshals per request.
func (d StatusDocument) Marshal() (string, error) {
	if d.Players.Sample == nil {
		d.Players.Sample = []StatusPlayerSample{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
