package api

import (
	"net/http"

	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/macaron.v1"
)

func (s *Server) appStatus(ctx *macaron.Context) {
	if !s.Pool.Ready() {
		ctx.PlainText(http.StatusServiceUnavailable, []byte("waiting for the first cache update"))
		return
	}
	ctx.PlainText(http.StatusOK, []byte("OK"))
}

func (s *Server) workers(ctx *macaron.Context) {
	ctx.JSON(http.StatusOK, s.Pool.Status())
}

type function struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
	Help  string `json:"help"`
}

func describe(name string) (function, error) {
	usage, err := functions.Usage(name)
	if err != nil {
		return function{}, err
	}
	help, err := functions.Describe(name)
	if err != nil {
		return function{}, err
	}
	return function{Name: name, Usage: usage, Help: help}, nil
}

func (s *Server) functions(ctx *macaron.Context) {
	var out []function
	for _, name := range functions.Names() {
		f, err := describe(name)
		if err != nil {
			ctx.PlainText(http.StatusInternalServerError, []byte(err.Error()))
			return
		}
		out = append(out, f)
	}
	ctx.JSON(http.StatusOK, out)
}

func (s *Server) function(ctx *macaron.Context) {
	f, err := describe(ctx.Params(":name"))
	if err != nil {
		ctx.PlainText(http.StatusNotFound, []byte(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, f)
}

type explainStep struct {
	Name       string                 `json:"name"`
	Kind       string                 `json:"kind"`
	Expression string                 `json:"expression,omitempty"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
	Result     interface{}            `json:"result"`
	Error      string                 `json:"error,omitempty"`
}

type explainResponse struct {
	Calculate bool                   `json:"calculate"`
	Reason    string                 `json:"reason,omitempty"`
	Variables map[string]interface{} `json:"variables"`
	Trace     []explainStep          `json:"trace"`
	Errors    []string               `json:"errors,omitempty"`
}

func newExplainResponse(res *variables.Result, err error) explainResponse {
	out := explainResponse{
		Calculate: res.Calculate,
		Reason:    res.Reason,
		Variables: res.Variables,
	}
	for _, step := range res.Trace {
		e := explainStep{
			Name:       step.Name,
			Kind:       step.Kind.String(),
			Expression: step.Expression,
			Inputs:     step.Inputs,
			Result:     step.Result,
			Error:      step.Err,
		}
		out.Trace = append(out.Trace, e)
	}
	if merr, ok := err.(*multierror.Error); ok {
		for _, e := range merr.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
	} else if err != nil {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

// explain resolves the posted msg.ResolveRequest against the current cache.
func (s *Server) explain(ctx *macaron.Context, req msg.ResolveRequest) {
	if !s.Pool.Ready() {
		ctx.PlainText(http.StatusServiceUnavailable, []byte("waiting for the first cache update"))
		return
	}
	res, err := s.Pool.Explain(ctx.Req.Context(), req)
	ctx.JSON(http.StatusOK, newExplainResponse(res, err))
}
