package rpcapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"smartxchain/wire"
)

// Router builds the gorilla/mux binding over Handler, one route per verb
// in spec §6's table. Grounded on the teacher's walletserver/routes.go +
// middleware.Logger pair: a package-level logging middleware wraps every
// route, and each handler is a thin decode/call/encode wrapper.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logger)
	r.HandleFunc("/rpc/getpublickey", h.handleGetPublicKey).Methods(http.MethodGet)
	r.HandleFunc("/rpc/register", h.secureHandler(h.handleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/nodes", h.secureHandler(h.handleNodes)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/chaininfo", h.secureHandler(h.handleChainInfo)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/vote", h.secureHandler(h.handleVote)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/newblocks", h.secureHandler(h.handleNewBlocks)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/verifycode", h.secureHandler(h.handleVerifyCode)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/validatechain", h.secureHandler(h.handleValidateChain)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/rebootchain", h.secureHandler(h.handleRebootChain)).Methods(http.MethodPost)
	r.HandleFunc("/rpc/getblock/{n}", h.handleGetBlock).Methods(http.MethodGet)
	return r
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start),
		}).Info("rpcapi: request")
	})
}

// handleGetPublicKey is the one unauthenticated verb: the response body
// is the base64 encoding of the JSON payload (spec §6: "base64-of-JSON").
func (h *Handler) handleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	payload, err := json.Marshal(h.GetPublicKey())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte(base64.StdEncoding.EncodeToString(payload)))
}

// secureHandler wraps an inner function that operates on decrypted
// request/response plaintext, handling the envelope open/reseal common
// to every other verb in spec §6's table.
func (h *Handler) secureHandler(inner func(plaintext []byte) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.SecureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed secure request", http.StatusBadRequest)
			return
		}
		if req.SenderPublicKey == "" {
			http.Error(w, "Error: missing sender public key", http.StatusBadRequest)
			return
		}
		peerPubKey := req.SenderPublicKey

		plaintext, err := h.o.Channel.Open(req.PeerAddress, peerPubKey, req.Envelope)
		if err != nil {
			h.log.WithFields(logrus.Fields{"peer": req.PeerAddress, "error": err}).Warn("rpcapi: envelope open failed")
			http.Error(w, "Error: tampered request", http.StatusBadRequest)
			return
		}

		reply, err := inner(plaintext)
		if err != nil {
			h.log.WithFields(logrus.Fields{"peer": req.PeerAddress, "error": err}).Warn("rpcapi: handler failed")
			reply = []byte("")
		}

		env, err := h.o.Channel.Seal(req.PeerAddress, peerPubKey, reply)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wire.SecureResponse{Envelope: env})
	}
}

func (h *Handler) handleRegister(plaintext []byte) ([]byte, error) {
	req, ok := wire.DecodeRegisterRequest(string(plaintext))
	if !ok {
		return []byte(""), nil
	}
	if h.Register(req) {
		return []byte("ok"), nil
	}
	return []byte(""), nil
}

func (h *Handler) handleNodes(plaintext []byte) ([]byte, error) {
	addresses, err := h.Nodes(string(plaintext))
	if err != nil {
		return []byte(""), nil
	}
	return []byte(wire.EncodeNodesResponse(addresses)), nil
}

func (h *Handler) handleChainInfo(plaintext []byte) ([]byte, error) {
	var req wire.ChainInfo
	if len(plaintext) > 0 {
		_ = json.Unmarshal(plaintext, &req)
	}
	resp, err := h.ChainInfo(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func (h *Handler) handleVote(plaintext []byte) ([]byte, error) {
	req, ok := wire.DecodeVoteRequest(string(plaintext))
	if !ok {
		return []byte(""), nil
	}
	return []byte(h.Vote(req).Encode()), nil
}

func (h *Handler) handleNewBlocks(plaintext []byte) ([]byte, error) {
	var req wire.ChainInfo
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return []byte(wire.ErrorMessage("malformed request")), nil
	}
	resp := h.NewBlocks(req)
	return json.Marshal(resp)
}

func (h *Handler) handleVerifyCode(plaintext []byte) ([]byte, error) {
	req, ok := wire.DecodeVerifyCodeRequest(string(plaintext))
	if !ok {
		return []byte(wire.VerifyCodeResponse{OK: false, Reason: "malformed request"}.Encode()), nil
	}
	return []byte(h.VerifyCode(req).Encode()), nil
}

func (h *Handler) handleValidateChain(plaintext []byte) ([]byte, error) {
	return []byte(h.ValidateChain()), nil
}

func (h *Handler) handleRebootChain(plaintext []byte) ([]byte, error) {
	return []byte(h.RebootChain()), nil
}

// handleGetBlock is GetBlock/{n}: unauthenticated per spec §6's table
// (listed alongside GetPublicKey as the two GET verbs, the only ones not
// carrying a secure envelope), returning 400 on a malformed index and 404
// when it's out of range.
func (h *Handler) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	idx := mux.Vars(r)["n"]
	n, err := strconv.Atoi(idx)
	if err != nil {
		http.Error(w, "bad block index", http.StatusBadRequest)
		return
	}
	block, err := h.GetBlock(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(block)
}
