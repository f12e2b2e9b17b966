package plugins

import (
	"time"

	"github.com/BaSui01/plugstore/types"
)

const chatPDFDocument = `{
  "openapi": "3.1.0",
  "info": {
    "title": "Chat PDF GPT",
    "description": "A GPT that allows the user to read data from a link.",
    "version": "v1"
  },
  "servers": [{"url": "https://gpt.chatpdf.aidocmaker.com"}],
  "paths": {
    "/read_url": {
      "post": {
        "operationId": "ChatPDFReadRrl",
        "summary": "Read the contents of an URL link",
        "description": "Allows for reading the contents of an URL link, including PDF/DOC/DOCX/PPT/CSV/XLS/XLSX/HTML content, Google Drive, Dropbox, OneDrive, aidocmaker.com docs. Always wrap image URLs from the response field ` + "`z1_image_urls`" + ` in Markdown, where each image has a ## DESCRIPTION.",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/ReadDocV2Request"}
            }
          }
        },
        "responses": {
          "200": {"description": "Successful Response", "content": {"application/json": {"schema": {}}}},
          "422": {
            "description": "Validation Error",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/HTTPValidationError"}}}
          }
        },
        "x-openai-isConsequential": false
      }
    }
  },
  "components": {
    "schemas": {
      "HTTPValidationError": {
        "title": "HTTPValidationError",
        "type": "object",
        "properties": {
          "detail": {"title": "Detail", "type": "array", "items": {"$ref": "#/components/schemas/ValidationError"}}
        }
      },
      "ReadDocV2Request": {
        "title": "ReadDocV2Request",
        "type": "object",
        "required": ["f1_http_url"],
        "properties": {
          "f1_http_url": {
            "title": "F1 Http Url",
            "type": "string",
            "description": "User will pass a HTTPS or HTTP url to a file so that the file contents can be read."
          },
          "f2_query": {
            "title": "F2 Query",
            "type": "string",
            "default": "",
            "description": "User will pass a query string to fetch relevant sections from the contents. It will be used for sentence-level similarity search on the document based on embeddings."
          },
          "f3_selected_pages": {
            "title": "F3 Selected Pages",
            "type": "array",
            "default": [],
            "items": {"type": "integer"},
            "description": "Filter document on these page numbers. Use empty list to get all pages."
          }
        }
      },
      "ValidationError": {
        "title": "ValidationError",
        "type": "object",
        "required": ["loc", "msg", "type"],
        "properties": {
          "loc": {"title": "Location", "type": "array", "items": {"anyOf": [{"type": "string"}, {"type": "integer"}]}},
          "msg": {"title": "Message", "type": "string"},
          "type": {"title": "Error Type", "type": "string"}
        }
      }
    }
  }
}`

const duckDuckGoLiteDocument = `{
  "openapi": "3.1.0",
  "info": {
    "title": "duckduckgo lite",
    "description": "a search engine. useful for when you need to answer questions about current events. input should be a search query.",
    "version": "v1.0.0"
  },
  "servers": [{"url": "https://lite.duckduckgo.com"}],
  "paths": {
    "/lite/": {
      "post": {
        "operationId": "DuckDuckGoLiteSearch",
        "description": "a search engine. useful for when you need to answer questions about current events. input should be a search query.",
        "deprecated": false,
        "parameters": [
          {"name": "q", "in": "query", "required": true, "description": "keywords for query.", "schema": {"type": "string"}},
          {"name": "s", "in": "query", "description": "can be ` + "`0`" + `", "schema": {"type": "number"}},
          {"name": "o", "in": "query", "description": "can be ` + "`json`" + `", "schema": {"type": "string"}},
          {"name": "api", "in": "query", "description": "can be ` + "`d.js`" + `", "schema": {"type": "string"}},
          {"name": "kl", "in": "query", "description": "wt-wt, us-en, uk-en, ru-ru, etc. Defaults to ` + "`wt-wt`" + `.", "schema": {"type": "string"}},
          {"name": "bing_market", "in": "query", "description": "wt-wt, us-en, uk-en, ru-ru, etc. Defaults to ` + "`wt-wt`" + `.", "schema": {"type": "string"}}
        ]
      }
    }
  },
  "components": {"schemas": {}}
}`

const arxivSearchDocument = `{
  "openapi": "3.1.0",
  "info": {
    "title": "arxiv search",
    "description": "Run Arxiv search and get the article information.",
    "version": "v1.0.0"
  },
  "servers": [{"url": "https://export.arxiv.org"}],
  "paths": {
    "/api/query": {
      "get": {
        "operationId": "ArxivSearch",
        "description": "Run Arxiv search and get the article information.",
        "deprecated": false,
        "parameters": [
          {"name": "search_query", "in": "query", "required": true, "description": "same as the search_query parameter rules of the arxiv API.", "schema": {"type": "string"}},
          {"name": "sortBy", "in": "query", "description": "can be ` + "`relevance`, `lastUpdatedDate`, `submittedDate`" + `.", "schema": {"type": "string"}},
          {"name": "sortOrder", "in": "query", "description": "can be either ` + "`ascending` or `descending`" + `.", "schema": {"type": "string"}},
          {"name": "start", "in": "query", "description": "the index of the first returned result.", "schema": {"type": "number"}},
          {"name": "max_results", "in": "query", "description": "the number of results returned by the query.", "schema": {"type": "number"}}
        ]
      }
    }
  },
  "components": {"schemas": {}}
}`

const codeInterpreterDocument = `{
  "openapi": "3.1.0",
  "info": {"title": "CodeInterpreter", "version": "1.0.0"},
  "servers": [{"url": "https://code.leez.tech"}],
  "paths": {
    "/runcode": {
      "post": {
        "operationId": "CodeInterpreter",
        "summary": "Run a given Python program and return the output.",
        "x-openai-isConsequential": false,
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["code", "languageType", "variables"],
                "properties": {
                  "code": {"type": "string", "description": "The Python code to execute"},
                  "languageType": {"type": "string", "description": "value is ` + "`python`" + `"},
                  "variables": {"type": "object", "description": "value is empty dict: ` + "`{}`" + `"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

// Builtin plugin ids.
const (
	ChatPDFPluginID         = "chatPdfGpt"
	DuckDuckGoLitePluginID  = "duckDuckGoLite"
	ArxivSearchPluginID     = "arxivSearch"
	CodeInterpreterPluginID = "codeInterpreter"
)

// DefaultPlugins returns a fresh copy of the predefined catalog. All entries
// are builtin, unauthenticated and routed through the local proxy.
func DefaultPlugins() map[string]types.Plugin {
	now := time.Now().UnixMilli()
	catalog := []types.Plugin{
		{ID: ChatPDFPluginID, Title: "ChatPDF: read PDF and office documents from a link", Version: "v1", Content: chatPDFDocument},
		{ID: DuckDuckGoLitePluginID, Title: "DuckDuckGo web search", Version: "v1.0.0", Content: duckDuckGoLiteDocument},
		{ID: ArxivSearchPluginID, Title: "arXiv search: find and fetch article information", Version: "v1.0.0", Content: arxivSearchDocument},
		{ID: CodeInterpreterPluginID, Title: "Code interpreter: run Python code and return the output", Version: "1.0.0", Content: codeInterpreterDocument},
	}

	plugins := make(map[string]types.Plugin, len(catalog))
	for _, p := range catalog {
		p.CreatedAt = now
		p.Builtin = true
		p.AuthType = types.AuthTypeNone
		p.UsingProxy = true
		plugins[p.ID] = p
	}
	return plugins
}
