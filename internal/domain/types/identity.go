package types

// Identity binds a username to the key pair that proves ownership of it.
type Identity struct {
	Username Username
	KeyPair  KeyPair
}

// PublicRecord returns the directory record describing this identity.
func (id Identity) PublicRecord() PublicKeyRecord {
	return PublicKeyRecord{Username: id.Username, Key: id.KeyPair.Public()}
}
