package vault

import "context"

// VenueCredentials is one venue's API key pair.
type VenueCredentials struct {
	APIKey    string
	APISecret string
}

// LoadVenueCredentials reads a venue's API key pair from
// "venues/<venue>" under the client's configured secret path. A nil
// client (Vault integration disabled) returns a zero-value
// VenueCredentials and no error, leaving credential resolution to
// whatever the caller's own configuration provides.
func LoadVenueCredentials(ctx context.Context, c *Client, venue string) (VenueCredentials, error) {
	if c == nil {
		return VenueCredentials{}, nil
	}

	data, err := c.GetSecret(ctx, "venues/"+venue)
	if err != nil {
		return VenueCredentials{}, err
	}

	creds := VenueCredentials{}
	if v, ok := data["api_key"].(string); ok {
		creds.APIKey = v
	}
	if v, ok := data["api_secret"].(string); ok {
		creds.APISecret = v
	}
	return creds, nil
}
