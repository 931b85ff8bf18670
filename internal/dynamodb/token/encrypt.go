package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/exceptions"
)

type EncryptMode func(cipher.Block) (cipher.AEAD, error)

type EncryptionTokenMarshaler struct {
	Mode   EncryptMode
	Secret string
}

func NewGCM(secret string) *EncryptionTokenMarshaler {
	return &EncryptionTokenMarshaler{
		Mode:   cipher.NewGCM,
		Secret: secret,
	}
}

func lastKeyToToken(lastKey map[string]types.AttributeValue) ([]byte, error) {
	if len(lastKey) == 0 {
		return nil, nil
	}
	token := make(data.NextToken, len(lastKey))
	for key, value := range lastKey {
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			token[key] = map[string]string{"S": v.Value}
		case *types.AttributeValueMemberN:
			token[key] = map[string]string{"N": v.Value}
		case *types.AttributeValueMemberB:
			token[key] = map[string]string{"B": base64.StdEncoding.EncodeToString(v.Value)}
		default:
			return nil, fmt.Errorf("unsupported key attribute %s of type %T", key, value)
		}
	}
	return json.Marshal(token)
}

func tokenToLastKey(token []byte) (map[string]types.AttributeValue, error) {
	var nextToken data.NextToken
	if err := json.Unmarshal(token, &nextToken); err != nil {
		return nil, err
	}
	lastKey := make(map[string]types.AttributeValue, len(nextToken))
	for field, inner := range nextToken {
		if sv, ok := inner["S"]; ok {
			lastKey[field] = &types.AttributeValueMemberS{Value: sv}
		}
		if nv, ok := inner["N"]; ok {
			lastKey[field] = &types.AttributeValueMemberN{Value: nv}
		}
		if bv, ok := inner["B"]; ok {
			raw, err := base64.StdEncoding.DecodeString(bv)
			if err != nil {
				return nil, err
			}
			lastKey[field] = &types.AttributeValueMemberB{Value: raw}
		}
	}
	return lastKey, nil
}

func (em *EncryptionTokenMarshaler) aead(partition string) (cipher.AEAD, error) {
	hash := sha256.Sum256([]byte(em.Secret + ":" + partition))
	block, err := aes.NewCipher(hash[:])
	if err != nil {
		return nil, err
	}
	return em.Mode(block)
}

type sealed struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

func (em *EncryptionTokenMarshaler) Marshal(partition string, lastKey map[string]types.AttributeValue) ([]byte, error) {
	serialized, err := lastKeyToToken(lastKey)
	if err != nil || serialized == nil {
		return serialized, err
	}
	aead, err := em.aead(partition)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(sealed{
		Ciphertext: hex.EncodeToString(aead.Seal(nil, nonce, serialized, nil)),
		Nonce:      hex.EncodeToString(nonce),
	})
	if err != nil {
		return nil, err
	}
	return []byte(base64.URLEncoding.EncodeToString(payload)), nil
}

// Unmarshal rejects tokens that were issued for another partition.
func (em *EncryptionTokenMarshaler) Unmarshal(partition string, token []byte) (map[string]types.AttributeValue, error) {
	if len(token) == 0 {
		return nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(string(token))
	if err != nil {
		return nil, exceptions.InvalidInput("malformed next token")
	}
	var payload sealed
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, exceptions.InvalidInput("malformed next token")
	}
	aead, err := em.aead(partition)
	if err != nil {
		return nil, err
	}
	ciphertext, err := hex.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, exceptions.InvalidInput("malformed next token")
	}
	nonce, err := hex.DecodeString(payload.Nonce)
	if err != nil || len(nonce) != aead.NonceSize() {
		return nil, exceptions.InvalidInput("malformed next token")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, exceptions.InvalidInput("next token does not belong to %s", partition)
	}
	return tokenToLastKey(plaintext)
}
