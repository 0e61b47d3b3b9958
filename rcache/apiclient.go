/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

// Client side API calls, used by rcache-cli.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

func NewClient(name, baseurl, apikey, authmethod string, verbose, debug bool) *Api {
	api := Api{
		Name:       name,
		BaseUrl:    baseurl,
		apiKey:     apikey,
		Authmethod: authmethod,
		Client:     &http.Client{},
		Verbose:    verbose,
		Debug:      debug,
	}

	if debug {
		fmt.Printf("Setting up %s API client:\n", name)
		fmt.Printf("* baseurl is: %s \n* authmethod is: %s \n", api.BaseUrl, api.Authmethod)
	}

	return &api
}

func (api *Api) requestHelper(req *http.Request) (int, []byte, error) {

	req.Header.Add("Content-Type", "application/json")

	switch api.Authmethod {
	case "":
		// no authentication header at all
	case "X-API-Key":
		req.Header.Add("X-API-Key", api.apiKey)
	case "Authorization":
		req.Header.Add("Authorization", fmt.Sprintf("token %s", api.apiKey))
	default:
		log.Printf("Error: Client API Post: unknown auth method: %s. Aborting.", api.Authmethod)
		return 501, []byte{}, fmt.Errorf("unknown auth method: %s", api.Authmethod)
	}

	if api.apiKey == "" {
		log.Fatalf("api.requestHelper: Error: apikey not set.")
	}

	resp, err := api.Client.Do(req)
	if err != nil {
		return 501, nil, err
	}

	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)

	if api.Debug {
		var prettyJSON bytes.Buffer
		if jerr := json.Indent(&prettyJSON, buf, "", "  "); jerr != nil {
			log.Println("JSON parse error: ", jerr)
		}
		fmt.Printf("requestHelper: received %d bytes of response data:\n%s\n",
			len(buf), prettyJSON.String())
	}

	return resp.StatusCode, buf, err
}

func (api *Api) Post(endpoint string, data []byte) (int, []byte, error) {

	if api.Debug {
		var prettyJSON bytes.Buffer
		if jerr := json.Indent(&prettyJSON, data, "", "  "); jerr != nil {
			log.Println("JSON parse error: ", jerr)
		}
		fmt.Printf("api.Post: posting to URL '%s' %d bytes of data:\n%s\n",
			api.BaseUrl+endpoint, len(data), prettyJSON.String())
	}

	req, err := http.NewRequest(http.MethodPost, api.BaseUrl+endpoint, bytes.NewReader(data))
	if err != nil {
		return 501, nil, err
	}
	return api.requestHelper(req)
}

// SendPing checks that the daemon is alive.
func (api *Api) SendPing(pings int) (PingResponse, error) {
	data, err := json.Marshal(PingPost{Msg: "ping", Pings: pings})
	if err != nil {
		return PingResponse{}, err
	}

	var pr PingResponse
	status, buf, err := api.Post("/ping", data)
	if err != nil {
		return pr, err
	}
	if status != http.StatusOK {
		return pr, fmt.Errorf("ping: status %d from %s", status, api.BaseUrl)
	}
	err = json.Unmarshal(buf, &pr)
	return pr, err
}

// SendCommand posts a daemon-level command (status, stop).
func (api *Api) SendCommand(cmd string) (CommandResponse, error) {
	data, err := json.Marshal(CommandPost{Command: cmd})
	if err != nil {
		return CommandResponse{}, err
	}

	var cr CommandResponse
	status, buf, err := api.Post("/command", data)
	if err != nil {
		return cr, err
	}
	if status != http.StatusOK {
		return cr, fmt.Errorf("command %q: status %d from %s", cmd, status, api.BaseUrl)
	}
	if err = json.Unmarshal(buf, &cr); err != nil {
		return cr, err
	}
	if cr.Error {
		return cr, fmt.Errorf("command %q: %s", cmd, cr.ErrorMsg)
	}
	return cr, nil
}

// SendCache posts a cache operation (flush, flushname, flushtree, dump,
// status) and returns the daemon's response.
func (api *Api) SendCache(cp CachePost) (CacheResponse, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return CacheResponse{}, err
	}

	var cr CacheResponse
	status, buf, err := api.Post("/cache", data)
	if err != nil {
		return cr, err
	}
	if status != http.StatusOK {
		return cr, fmt.Errorf("cache %q: status %d from %s", cp.Command, status, api.BaseUrl)
	}
	if err = json.Unmarshal(buf, &cr); err != nil {
		return cr, err
	}
	if cr.Error {
		return cr, fmt.Errorf("cache %q: %s", cp.Command, cr.ErrorMsg)
	}
	return cr, nil
}
