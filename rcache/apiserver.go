/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var pongs int

func APIping(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var pp PingPost
		err := decoder.Decode(&pp)
		if err != nil {
			log.Println("APIping: error decoding ping post:", err)
		}

		pongs++
		resp := PingResponse{
			Time:     time.Now(),
			BootTime: conf.ServerBootTime,
			Client:   r.RemoteAddr,
			Msg:      fmt.Sprintf("%s: pong from %s", conf.AppName, conf.ApiServer.Address),
			Pings:    pp.Pings + 1,
			Pongs:    pongs,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error from json encoder: %v", err)
		}
	}
}

func APIcommand(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var cp CommandPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcommand: error decoding command post:", err)
		}

		log.Printf("API: received /command request (cmd: %s) from %s.", cp.Command, r.RemoteAddr)

		resp := CommandResponse{
			AppName: conf.AppName,
			Time:    time.Now(),
		}

		switch cp.Command {
		case "status":
			resp.Status = "ok"
			resp.Msg = fmt.Sprintf("%s: all cool, ask the cache for numbers", conf.AppName)

		case "stop":
			log.Printf("Daemon instructed to stop")
			resp.Status = "stopping"
			resp.Msg = fmt.Sprintf("%s: winding down", conf.AppName)
			go func() {
				// Let the HTTP response out before shutdown starts.
				time.Sleep(200 * time.Millisecond)
				conf.Internal.StopOnce.Do(func() {
					close(conf.Internal.APIStopCh)
				})
			}()

		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("%s: unknown command: %s", conf.AppName, cp.Command)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error from json encoder: %v", err)
		}
	}
}

// APIcache is the control-channel surface of the record cache: whole-cache
// flush, exact-name flush, subtree flush, dump and status. Flush targets
// that hold nothing are reported as success with Removed == 0.
func APIcache(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := conf.Internal.RecordCache

		decoder := json.NewDecoder(r.Body)
		var cp CachePost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcache: error decoding cache post:", err)
		}

		log.Printf("API: received /cache request (cmd: %s, name: %q) from %s.",
			cp.Command, cp.Name, r.RemoteAddr)

		resp := CacheResponse{
			AppName: conf.AppName,
			Time:    time.Now(),
			Status:  "ok",
		}

		switch cp.Command {
		case "flush":
			resp.Removed = rc.FlushAll()
			resp.Msg = fmt.Sprintf("flushed entire cache (%d nodes invalidated)", resp.Removed)

		case "flushname":
			resp.Removed, err = rc.FlushName(cp.Name)
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			resp.Msg = fmt.Sprintf("flushed %d rrsets at %s", resp.Removed, cp.Name)

		case "flushtree":
			resp.Removed, err = rc.FlushTree(cp.Name)
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			resp.Msg = fmt.Sprintf("flushed %d rrsets at or below %s", resp.Removed, cp.Name)

		case "dump":
			resp.Nodes = rc.Snapshot()
			resp.Stats = rc.Stats()
			resp.Msg = fmt.Sprintf("dumped %d live nodes", len(resp.Nodes))

		case "status":
			resp.Stats = rc.Stats()

		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("unknown cache command: %s", cp.Command)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error from json encoder: %v", err)
		}
	}
}

func SetupAPIRouter(conf *Config) (*mux.Router, error) {
	r := mux.NewRouter().StrictSlash(true)
	apikey := conf.ApiServer.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("apiserver.apikey is not set")
	}

	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()

	sr.HandleFunc("/ping", APIping(conf)).Methods("POST")
	sr.HandleFunc("/command", APIcommand(conf)).Methods("POST")
	sr.HandleFunc("/cache", APIcache(conf)).Methods("POST")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r, nil
}

func WalkRoutes(router *mux.Router, address string) {
	log.Printf("Defined API endpoints for router on: %s\n", address)

	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Panicf("Logging err: %s\n", err.Error())
	}
}

// APIdispatcher starts the control-channel HTTP server.
func APIdispatcher(conf *Config, done <-chan struct{}) {
	router, err := SetupAPIRouter(conf)
	if err != nil {
		log.Fatalf("APIdispatcher: %v", err)
	}

	address := conf.ApiServer.Address
	WalkRoutes(router, address)

	go func() {
		log.Println("Starting API dispatcher. Listening on", address)
		log.Fatal(http.ListenAndServe(address, router))
	}()
}
