package utils

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ExtractString safely extracts a string from a DynamoDB attribute map
func ExtractString(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

// ExtractBool reads a BOOL attribute, returning def when it is absent.
func ExtractBool(item map[string]types.AttributeValue, field string, def bool) bool {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberBOOL); ok {
			return v.Value
		}
	}
	return def
}

// ExtractFirstPhoto extracts the first photo URL from a list attribute,
// falling back to a plain string attribute of the same name.
func ExtractFirstPhoto(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		switch photos := attr.(type) {
		case *types.AttributeValueMemberL:
			if len(photos.Value) > 0 {
				if photo, ok := photos.Value[0].(*types.AttributeValueMemberS); ok {
					return photo.Value
				}
			}
		case *types.AttributeValueMemberS:
			return photos.Value
		}
	}
	return ""
}
