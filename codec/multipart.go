package codec

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// MultipartBody is a multipart/form-data request payload. Use it as a
// request body value to get multipart encoding with a generated boundary.
type MultipartBody struct {
	// Fields are simple key-value form fields.
	Fields map[string]string
	// Files are file upload parts.
	Files []FilePart
}

// FilePart is one file part of a multipart body.
type FilePart struct {
	// FieldName is the form field name (e.g. "file", "audio").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the part's MIME type. Empty means
	// application/octet-stream.
	ContentType string
	// Data is the file content. Used when Reader is nil.
	Data []byte
	// Reader supplies the content for large files instead of Data.
	Reader io.Reader
}

var (
	multipartBodyType    = typeOf[MultipartBody]()
	multipartBodyPtrType = typeOf[*MultipartBody]()
)

// MultipartEncoder writes MultipartBody values. Encode only; responses are
// never multipart in this client.
//
// The boundary is fixed in ContentType so the header and the written body
// agree; callers must pass the resolved media type back into Encode.
type MultipartEncoder struct{}

func (c *MultipartEncoder) CanEncode(t reflect.Type, mt MediaType) bool {
	if t != multipartBodyType && t != multipartBodyPtrType {
		return false
	}
	return mt.IsZero() || mt.EqualsTypeAndSubtype(MultipartFormData) || mt.Type == "*"
}

func (c *MultipartEncoder) ContentType(mt MediaType) MediaType {
	if mt.EqualsTypeAndSubtype(MultipartFormData) && mt.Param("boundary") != "" {
		return mt
	}
	return MultipartFormData.WithParam("boundary", "clientkit-"+uuid.NewString())
}

func (c *MultipartEncoder) Encode(w io.Writer, v any, mt MediaType) error {
	body, ok := v.(*MultipartBody)
	if !ok {
		b := v.(MultipartBody)
		body = &b
	}

	mw := multipart.NewWriter(w)
	if b := mt.Param("boundary"); b != "" {
		if err := mw.SetBoundary(b); err != nil {
			return err
		}
	}

	for k, val := range body.Fields {
		if err := mw.WriteField(k, val); err != nil {
			return err
		}
	}

	for _, f := range body.Files {
		part, err := createFilePart(mw, f)
		if err != nil {
			return err
		}
		if f.Data != nil {
			if _, err := part.Write(f.Data); err != nil {
				return err
			}
		} else if f.Reader != nil {
			if _, err := io.Copy(part, f.Reader); err != nil {
				return err
			}
		}
	}

	return mw.Close()
}

func createFilePart(mw *multipart.Writer, f FilePart) (io.Writer, error) {
	if f.ContentType == "" {
		return mw.CreateFormFile(f.FieldName, f.FileName)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+quoteEscaper.Replace(f.FieldName)+`"; filename="`+quoteEscaper.Replace(f.FileName)+`"`)
	header.Set("Content-Type", f.ContentType)
	return mw.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)
