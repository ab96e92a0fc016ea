package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dogfordate/pkg/model"
)

const bookingsPath = "/api/v1/bookings"

type BookingClient struct {
	httpClient *HttpClient
}

// CompletionResult is the body returned by the complete-due endpoint.
type CompletionResult struct {
	Completed int      `json:"completed"`
	IDs       []string `json:"ids"`
}

func NewBookingClient(baseURL string, tokenSource func() (string, error)) *BookingClient {
	httpClient := NewHttpClient(baseURL)
	httpClient.TokenSource = tokenSource
	return &BookingClient{httpClient: httpClient}
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, bookingsPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get booking %s: %s", id, GetErrorMessage(resp))
	}

	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CompleteDue asks the bookings service to complete every confirmed booking
// whose end time has passed.
func (c *BookingClient) CompleteDue(ctx context.Context) (*CompletionResult, error) {
	resp, err := c.httpClient.POST(ctx, bookingsPath+"/complete-due", struct{}{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("complete due bookings: %s", GetErrorMessage(resp))
	}

	var result CompletionResult
	if err := resp.DecodeData(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BookingClient) WaitForHealthy(ctx context.Context) error {
	return c.httpClient.WaitForHealthy(ctx, defaultHTTPTimeout)
}
