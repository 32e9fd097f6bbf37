package gitcli

import "context"

// WriteBlob writes data as a loose blob object and returns its oid.
func (c *Client) WriteBlob(ctx context.Context, data []byte) (string, error) {
	out, err := c.runRaw(ctx, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", err
	}
	return trimTrailingNewline(out), nil
}

// ReadBlob reads the content of a blob object by oid.
func (c *Client) ReadBlob(ctx context.Context, oid string) ([]byte, error) {
	out, err := c.runRaw(ctx, nil, "cat-file", "-p", oid)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func trimTrailingNewline(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
