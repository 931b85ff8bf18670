package util

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/notifications/internal/exceptions"
)

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, http.StatusOK)
}

func SerializeResponseCreated[T interface{}, R interface{}](delayed func(T) R, thing T, err error, location string) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := SerializeResponse(delayed, thing, err, http.StatusCreated)
	if err != nil {
		return resp, err
	}
	resp.Headers["Location"] = location
	return resp, nil
}

func SerializeResponseNoContent(err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusNoContent,
	}, nil
}

func Identity[T interface{}](thing T) T {
	return thing
}

// DecodeBody unmarshals a JSON request body, answering 400 on anything malformed.
func DecodeBody(event events.APIGatewayV2HTTPRequest, out any) error {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return exceptions.InvalidInput("request body is not valid base64: %s", err)
		}
		body = decoded
	}
	if len(body) == 0 {
		return exceptions.InvalidInput("request body is required")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return exceptions.InvalidInput("request body is malformed: %s", err)
	}
	return nil
}
